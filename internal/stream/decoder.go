// Package stream decodes newline-delimited JSON job streams into typed
// messages.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tbecker/braincli/internal/models"
)

// ErrIncompleteStream is reported when the transport ends before a
// terminal (result or error) message was observed.
var ErrIncompleteStream = errors.New("stream ended without a terminal message")

// chunkSize is the transport read size used by Consume.
const chunkSize = 4096

// Decoder turns raw byte chunks into StreamMessages. Chunk boundaries
// may fall anywhere, including inside a line; the trailing partial line
// is buffered until the next chunk or Finish.
//
// A line that does not parse as a message is logged and dropped: one
// malformed progress line must not sink a result arriving later.
type Decoder struct {
	buf    strings.Builder
	logger *slog.Logger
}

// NewDecoder creates a decoder. A nil logger falls back to slog.Default.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Feed appends a chunk and returns every message completed by it, in
// stream order.
func (d *Decoder) Feed(chunk []byte) []models.StreamMessage {
	d.buf.Write(chunk)

	data := d.buf.String()
	lines := strings.Split(data, "\n")

	// The last fragment may be an incomplete line; keep it buffered.
	d.buf.Reset()
	d.buf.WriteString(lines[len(lines)-1])

	return d.parseLines(lines[:len(lines)-1])
}

// Finish flushes the remaining buffer as one final candidate line.
// Call it when the transport signals end-of-stream.
func (d *Decoder) Finish() []models.StreamMessage {
	rest := d.buf.String()
	d.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	return d.parseLines([]string{rest})
}

func (d *Decoder) parseLines(lines []string) []models.StreamMessage {
	var out []models.StreamMessage
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg models.StreamMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			d.logger.Warn("dropping malformed stream line", "error", err, "line", line)
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Consume drains r through a Decoder and enforces the terminal
// contract: it returns the result payload of the single result message,
// the error carried by a terminal error message, or ErrIncompleteStream
// when the stream ends with neither. Messages after the terminal one
// are ignored. onStage, if non-nil, is invoked for every progress
// message in arrival order; its error aborts the consumption.
func Consume(ctx context.Context, r io.Reader, logger *slog.Logger, onStage func(stage string) error) (*models.AnalysisResult, error) {
	d := NewDecoder(logger)
	buf := make([]byte, chunkSize)

	handle := func(msgs []models.StreamMessage) (*models.AnalysisResult, bool, error) {
		for _, msg := range msgs {
			switch msg.Kind {
			case models.MessageProgress:
				if onStage != nil {
					if err := onStage(msg.Stage); err != nil {
						return nil, true, err
					}
				}
			case models.MessageResult:
				return msg.Payload, true, nil
			case models.MessageError:
				return nil, true, fmt.Errorf("analysis failed: %s", msg.Message)
			}
		}
		return nil, false, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if result, done, err := handle(d.Feed(buf[:n])); done {
				return result, err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read stream: %w", readErr)
		}
	}

	if result, done, err := handle(d.Finish()); done {
		return result, err
	}
	return nil, ErrIncompleteStream
}
