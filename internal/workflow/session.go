package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tbecker/braincli/internal/client"
	"github.com/tbecker/braincli/internal/metrics"
	"github.com/tbecker/braincli/internal/models"
	"github.com/tbecker/braincli/internal/score"
	"github.com/tbecker/braincli/internal/upload"
)

// Backend is the slice of the backend client the orchestrator drives.
// *client.Client satisfies it.
type Backend interface {
	SubmitIntake(ctx context.Context, intake models.IntakeRequest, onStage func(stage string) error) (*models.AnalysisResult, error)
	AnalyzeCompletion(ctx context.Context, tenantID string, forceRefresh bool) (*models.CompletionAnalysis, error)
	SaveAnswers(ctx context.Context, tenantID string, req client.SaveAnswersRequest) error
	RegenerateProfile(ctx context.Context, tenantID string) error
	SynthesizeBrain(ctx context.Context, tenantID string) error
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
}

// analysisCache stores completion analyses keyed by tenant id. The
// Manager implements it; staleness is controlled by the caller's
// forceRefresh, never implicitly.
type analysisCache interface {
	GetAnalysis(tenantID string) *models.CompletionAnalysis
	PutAnalysis(tenantID string, analysis *models.CompletionAnalysis)
}

// Session owns the enhancement flow for exactly one tenant: the stage
// machine, the local edit state, and the cached analysis. All exported
// methods are safe for concurrent use; remote calls happen outside the
// lock so a slow stage never blocks Snapshot.
type Session struct {
	tenantID string
	backend  Backend
	uploads  *upload.Pipeline
	cache    analysisCache
	logger   *slog.Logger
	timings  *metrics.Collector

	// onStage, when set, observes every stage transition. It is called
	// before the stage's network call is issued, so a slow stage is
	// visibly attributed.
	onStage func(Stage)

	mu          sync.RWMutex
	stage       Stage
	failedStage Stage
	errMsg      string
	edits       *models.EditState
	analysis    *models.CompletionAnalysis
	artifact    *models.AnalysisResult
	tenant      *models.Tenant
	completion  score.Completion
	jobStages   []string
}

// Snapshot is a consistent copy of session state for progress UIs.
type Snapshot struct {
	TenantID     string
	Stage        Stage
	FailedStage  Stage
	Err          string
	Completion   score.Completion
	PendingFiles int
	Analysis     *models.CompletionAnalysis
	Artifact     *models.AnalysisResult
	JobStages    []string
	Timings      map[string]metrics.OperationSnapshot
}

func newSession(tenantID string, backend Backend, uploads *upload.Pipeline, cache analysisCache, onStage func(Stage), logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		tenantID: tenantID,
		backend:  backend,
		uploads:  uploads,
		cache:    cache,
		onStage:  onStage,
		logger:   logger.With("tenant_id", tenantID),
		timings:  metrics.NewCollector(),
		stage:    StageIdle,
		edits:    models.NewEditState(),
	}
}

// TenantID returns the owning tenant.
func (s *Session) TenantID() string {
	return s.tenantID
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// Snapshot returns a thread-safe copy of session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		TenantID:     s.tenantID,
		Stage:        s.stage,
		FailedStage:  s.failedStage,
		Err:          s.errMsg,
		Completion:   s.completion,
		PendingFiles: s.edits.PendingCount(),
		Analysis:     s.analysis,
		Artifact:     s.artifact,
		JobStages:    append([]string(nil), s.jobStages...),
		Timings:      s.timings.Snapshot(),
	}
}

// setStage publishes a transition. Always called before the stage's
// network call.
func (s *Session) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	if stage != StageError {
		s.failedStage = ""
		s.errMsg = ""
	}
	s.mu.Unlock()

	if s.onStage != nil {
		s.onStage(stage)
	}
	s.logger.Debug("stage transition", "stage", string(stage))
}

// fail moves to the Error stage, remembering which stage failed so the
// progress indicator can freeze on its label.
func (s *Session) fail(failed Stage, err error) error {
	s.mu.Lock()
	s.stage = StageError
	s.failedStage = failed
	s.errMsg = err.Error()
	s.mu.Unlock()

	if s.onStage != nil {
		s.onStage(StageError)
	}
	s.logger.Error("stage failed", "stage", string(failed), "error", err)
	return fmt.Errorf("%s: %w", failed, err)
}

// Generate submits an intake job and waits for the generated artifact,
// recording every streamed progress stage. onStage, when non-nil, is
// additionally invoked per progress message for live display. Only an
// idle session may start a generation.
func (s *Session) Generate(ctx context.Context, intake models.IntakeRequest, onStage func(stage string)) (*models.AnalysisResult, error) {
	s.mu.Lock()
	if s.stage != StageIdle {
		s.mu.Unlock()
		return nil, ErrNotIdle
	}
	s.jobStages = nil
	s.mu.Unlock()

	s.setStage(StageAnalyzing)

	start := time.Now()
	result, err := s.backend.SubmitIntake(ctx, intake, func(stage string) error {
		s.mu.Lock()
		s.jobStages = append(s.jobStages, stage)
		s.mu.Unlock()
		s.logger.Info("job progress", "job_stage", stage)
		if onStage != nil {
			onStage(stage)
		}
		return nil
	})
	s.timings.RecordTiming(string(StageAnalyzing), time.Since(start))
	if err != nil {
		return nil, s.fail(StageAnalyzing, err)
	}

	s.mu.Lock()
	s.artifact = result
	s.mu.Unlock()

	s.setStage(StageIdle)
	return result, nil
}

// Open starts (or refreshes) the enhancement flow: fetch the completion
// analysis, pre-populate the edit state from the tenant's persisted
// answers, and hand control to the user.
//
// Opening is a merge, not a replace: answers the user is mid-editing
// survive a refresh. Strategic-recommendation target fields are never
// pre-filled.
func (s *Session) Open(ctx context.Context, forceRefresh bool) (*models.CompletionAnalysis, error) {
	s.mu.Lock()
	if s.stage.busy() {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	s.mu.Unlock()

	s.setStage(StageAnalyzing)

	analysis := s.cache.GetAnalysis(s.tenantID)
	if analysis == nil || forceRefresh {
		err := s.timings.Time(string(StageAnalyzing), func() error {
			fresh, err := s.backend.AnalyzeCompletion(ctx, s.tenantID, forceRefresh)
			if err != nil {
				return err
			}
			analysis = fresh
			return nil
		})
		if err != nil {
			return nil, s.fail(StageAnalyzing, err)
		}
		s.cache.PutAnalysis(s.tenantID, analysis)
	} else {
		s.logger.Debug("serving cached analysis")
	}

	tenant, err := s.backend.GetTenant(ctx, s.tenantID)
	if err != nil {
		return nil, s.fail(StageAnalyzing, err)
	}

	s.mu.Lock()
	s.analysis = analysis
	s.tenant = tenant
	s.prefillLocked()
	s.completion = score.Score(analysis, s.edits)
	s.mu.Unlock()

	s.setStage(StageAwaitingInput)
	return analysis, nil
}

// prefillLocked merges the tenant's persisted answers into the edit
// state. Caller holds s.mu.
func (s *Session) prefillLocked() {
	if s.tenant == nil || len(s.tenant.Answers) == 0 {
		return
	}
	targets := score.RecommendationTargets(s.analysis)

	seed := func(id string, kind models.FieldKind, skipTargets bool) {
		if kind == models.FieldFile {
			return
		}
		if s.edits.Edited(id) {
			return
		}
		if skipTargets {
			if _, isTarget := targets[id]; isTarget {
				return
			}
		}
		if prior, ok := s.tenant.Answers[id]; ok && prior != "" {
			s.edits.Texts[id] = prior
		}
	}

	for _, field := range score.QuickWins(s.analysis) {
		seed(field.FieldID, field.Kind, true)
	}
	for _, q := range score.Questions(s.analysis) {
		seed(q.ID, q.Kind, false)
	}
}

// SetAnswer records a text answer while awaiting input.
func (s *Session) SetAnswer(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageAwaitingInput {
		return ErrNotAwaitingInput
	}
	if err := s.edits.SetText(id, value); err != nil {
		return err
	}
	s.completion = score.Score(s.analysis, s.edits)
	return nil
}

// QueueFile queues a file answer while awaiting input.
func (s *Session) QueueFile(id string, file models.PendingFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageAwaitingInput {
		return ErrNotAwaitingInput
	}
	if err := s.edits.QueueFile(id, file); err != nil {
		return err
	}
	s.completion = score.Score(s.analysis, s.edits)
	return nil
}

// Save runs the persist, regenerate, synthesize, and rescore stages in
// order. Any fatal stage failure lands the session in the Error stage
// with the edit state intact; Acknowledge returns it to AwaitingInput
// and Save may simply be invoked again (every stage replaces rather
// than appends, so repeats are safe).
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stage.busy():
		s.mu.Unlock()
		return ErrSaveInProgress
	case s.stage != StageAwaitingInput:
		s.mu.Unlock()
		return ErrNotAwaitingInput
	}
	edits := s.edits.Clone()
	policies := uploadPolicies(s.analysis)
	s.mu.Unlock()

	// Persist: every queued file must settle before the answers are
	// submitted, all-or-nothing.
	s.setStage(StagePersisting)
	err := s.timings.Time(string(StagePersisting), func() error {
		refs, err := s.uploads.UploadAll(ctx, edits.Files, policies)
		if err != nil {
			return err
		}
		return s.backend.SaveAnswers(ctx, s.tenantID, client.SaveAnswersRequest{
			TextAnswers: edits.Texts,
			Files:       refs,
		})
	})
	if err != nil {
		return s.fail(StagePersisting, err)
	}

	s.setStage(StageRegenerating)
	err = s.timings.Time(string(StageRegenerating), func() error {
		return s.backend.RegenerateProfile(ctx, s.tenantID)
	})
	if err != nil {
		return s.fail(StageRegenerating, err)
	}

	// Synthesis only affects conversational quality downstream, never
	// the regenerated artifacts; its failure is logged, not fatal.
	s.setStage(StageSynthesizing)
	err = s.timings.Time(string(StageSynthesizing), func() error {
		return s.backend.SynthesizeBrain(ctx, s.tenantID)
	})
	if err != nil {
		s.logger.Warn("brain synthesis failed, continuing", "error", err)
	}

	s.setStage(StageRescoring)
	var analysis *models.CompletionAnalysis
	err = s.timings.Time(string(StageRescoring), func() error {
		var err error
		analysis, err = s.backend.AnalyzeCompletion(ctx, s.tenantID, true)
		return err
	})
	if err != nil {
		return s.fail(StageRescoring, err)
	}
	s.cache.PutAnalysis(s.tenantID, analysis)

	// Pick up server-side normalization before dropping local state.
	tenant, err := s.backend.GetTenant(ctx, s.tenantID)
	if err != nil {
		return s.fail(StageRescoring, err)
	}

	completion := score.Score(analysis, models.NewEditState())

	s.mu.Lock()
	s.analysis = analysis
	s.tenant = tenant
	s.edits = models.NewEditState()
	s.completion = completion
	s.mu.Unlock()

	s.setStage(StageIdle)
	s.logger.Info("enhancement saved", "overall", completion.Overall)
	return nil
}

// Acknowledge confirms an error and returns the session to
// AwaitingInput with the edit state untouched, ready for another save.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageError {
		return fmt.Errorf("nothing to acknowledge in stage %s", s.stage)
	}
	s.stage = StageAwaitingInput
	return nil
}

// Cancel abandons the flow, discarding the edit state and queued files
// without contacting the backend. Disallowed once persisting has begun:
// a half-applied persist-regenerate sequence would leave the tenant in
// a state the scorer cannot represent.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.busy() {
		return ErrCancelDisallowed
	}
	s.edits = models.NewEditState()
	s.stage = StageIdle
	s.failedStage = ""
	s.errMsg = ""
	return nil
}

// uploadPolicies maps each file-kind quick-win to its declared upload
// constraints.
func uploadPolicies(analysis *models.CompletionAnalysis) map[string]upload.Policy {
	policies := make(map[string]upload.Policy)
	for _, field := range score.QuickWins(analysis) {
		if field.Kind == models.FieldFile {
			policies[field.FieldID] = upload.PolicyFor(field)
		}
	}
	return policies
}
