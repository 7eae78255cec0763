package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/civicworks/countychat/internal/service"
)

// doneSignal terminates every chat stream; clients stop reading when they
// see it.
const doneSignal = "[DONE]"

// SSEWriter streams chat turn events to a client over Server-Sent Events.
// It implements service.TurnEmitter: one metadata event, then text events,
// then the done signal.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares a response for SSE streaming and sets the stream
// headers. Fails when the underlying writer cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

type departmentPayload struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	NameES string `json:"name_es"`
}

type turnMetaPayload struct {
	ConversationID string            `json:"conversation_id"`
	Department     departmentPayload `json:"department"`
}

type tokenPayload struct {
	Text string `json:"text"`
}

// Meta emits the turn metadata event. Always the first event on the stream.
func (s *SSEWriter) Meta(meta service.TurnMeta) error {
	payload := turnMetaPayload{ConversationID: meta.ConversationID}
	if meta.Department != nil {
		payload.Department = departmentPayload{
			Slug:   meta.Department.Slug,
			Name:   meta.Department.Name,
			NameES: meta.Department.NameES,
		}
	}
	return s.writeJSON(payload)
}

// Token emits one generated text fragment.
func (s *SSEWriter) Token(text string) error {
	return s.writeJSON(tokenPayload{Text: text})
}

// Done emits the stream terminator.
func (s *SSEWriter) Done() error {
	return s.writeData(doneSignal)
}

func (s *SSEWriter) writeJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE payload: %w", err)
	}
	return s.writeData(string(data))
}

func (s *SSEWriter) writeData(data string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
