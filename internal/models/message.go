// Package models defines data structures shared between the braincli
// client, the upload pipeline, the scorer, and the workflow.
package models

import (
	"encoding/json"
	"fmt"
)

// MessageKind discriminates the variants of a StreamMessage.
type MessageKind string

const (
	MessageProgress MessageKind = "progress"
	MessageResult   MessageKind = "result"
	MessageError    MessageKind = "error"
)

// StreamMessage is one framed message from an analysis job stream.
// Exactly one of the variant fields is set, according to Kind:
// Stage for progress, Payload for result, Message for error.
type StreamMessage struct {
	Kind    MessageKind
	Stage   string
	Payload *AnalysisResult
	Message string
}

// Terminal reports whether the message ends its stream.
func (m StreamMessage) Terminal() bool {
	return m.Kind == MessageResult || m.Kind == MessageError
}

// streamMessageJSON is the wire shape of a StreamMessage line.
type streamMessageJSON struct {
	Kind    MessageKind     `json:"kind"`
	Stage   string          `json:"stage,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// UnmarshalJSON decodes the tagged union, rejecting unknown kinds so a
// garbage line is dropped by the decoder instead of yielding an empty
// message.
func (m *StreamMessage) UnmarshalJSON(data []byte) error {
	var raw streamMessageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case MessageProgress:
		if raw.Stage == "" {
			return fmt.Errorf("progress message without stage")
		}
		*m = StreamMessage{Kind: MessageProgress, Stage: raw.Stage}
	case MessageResult:
		if len(raw.Payload) == 0 {
			return fmt.Errorf("result message without payload")
		}
		var payload AnalysisResult
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return fmt.Errorf("decode result payload: %w", err)
		}
		*m = StreamMessage{Kind: MessageResult, Payload: &payload}
	case MessageError:
		*m = StreamMessage{Kind: MessageError, Message: raw.Message}
	default:
		return fmt.Errorf("unknown message kind %q", raw.Kind)
	}
	return nil
}

// MarshalJSON encodes the tagged union back to its wire shape.
func (m StreamMessage) MarshalJSON() ([]byte, error) {
	raw := streamMessageJSON{Kind: m.Kind, Stage: m.Stage, Message: m.Message}
	if m.Payload != nil {
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		raw.Payload = payload
	}
	return json.Marshal(raw)
}
