package models

import (
	"fmt"
	"strings"
)

// PendingFile is one queued, not-yet-uploaded file for a file field.
type PendingFile struct {
	Name     string
	MimeType string
	Size     int64
	Content  []byte
}

// EditState is the local working set of an enhancement session: text
// answers keyed by fieldId or question id, and queued files keyed by
// fieldId. A fieldId never holds both a text answer and a file queue;
// the descriptor's kind is authoritative.
type EditState struct {
	Texts map[string]string
	Files map[string][]PendingFile
}

// NewEditState returns an empty working set.
func NewEditState() *EditState {
	return &EditState{
		Texts: make(map[string]string),
		Files: make(map[string][]PendingFile),
	}
}

// SetText records a text answer, rejecting ids that already hold files.
func (e *EditState) SetText(id, value string) error {
	if _, ok := e.Files[id]; ok {
		return fmt.Errorf("field %q already holds files, cannot set text", id)
	}
	e.Texts[id] = value
	return nil
}

// QueueFile appends a pending file, rejecting ids that already hold a
// text answer.
func (e *EditState) QueueFile(id string, file PendingFile) error {
	if _, ok := e.Texts[id]; ok {
		return fmt.Errorf("field %q already holds a text answer, cannot queue file", id)
	}
	e.Files[id] = append(e.Files[id], file)
	return nil
}

// ClearField removes both variants for an id.
func (e *EditState) ClearField(id string) {
	delete(e.Texts, id)
	delete(e.Files, id)
}

// Filled reports whether the id counts as answered for the given kind:
// non-blank text for text kinds, non-empty queue for file kinds.
func (e *EditState) Filled(id string, kind FieldKind) bool {
	if kind == FieldFile {
		return len(e.Files[id]) > 0
	}
	return strings.TrimSpace(e.Texts[id]) != ""
}

// Edited reports whether the user has touched the id in either variant.
func (e *EditState) Edited(id string) bool {
	if _, ok := e.Texts[id]; ok {
		return true
	}
	return len(e.Files[id]) > 0
}

// PendingCount returns the number of queued files across all fields.
func (e *EditState) PendingCount() int {
	n := 0
	for _, files := range e.Files {
		n += len(files)
	}
	return n
}

// Clone returns a deep copy, so snapshots do not alias live maps.
func (e *EditState) Clone() *EditState {
	out := NewEditState()
	for id, v := range e.Texts {
		out.Texts[id] = v
	}
	for id, files := range e.Files {
		out.Files[id] = append([]PendingFile(nil), files...)
	}
	return out
}
