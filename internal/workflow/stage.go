// Package workflow drives the stage-gated enhancement pipeline for one
// tenant: analyze, collect answers, persist with uploads, regenerate,
// synthesize, rescore.
package workflow

import "errors"

// Stage is one named step of the pipeline.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageAnalyzing     Stage = "analyzing"
	StageAwaitingInput Stage = "awaiting_input"
	StagePersisting    Stage = "persisting"
	StageRegenerating  Stage = "regenerating"
	StageSynthesizing  Stage = "synthesizing"
	StageRescoring     Stage = "rescoring"
	StageError         Stage = "error"
)

// busy reports whether the stage is mid-save, where cancellation and
// further user input are disallowed.
func (s Stage) busy() bool {
	switch s {
	case StagePersisting, StageRegenerating, StageSynthesizing, StageRescoring:
		return true
	}
	return false
}

var (
	// ErrNotAwaitingInput is returned when an edit or save is attempted
	// outside the AwaitingInput stage.
	ErrNotAwaitingInput = errors.New("session is not awaiting user input")

	// ErrSaveInProgress is returned when a save is re-invoked while a
	// previous one is still advancing.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrCancelDisallowed is returned when cancellation is attempted
	// after persistence has begun.
	ErrCancelDisallowed = errors.New("cannot cancel once persisting has started")

	// ErrNotIdle is returned when a generation is started on a session
	// that already has a flow in flight.
	ErrNotIdle = errors.New("session is not idle")
)
