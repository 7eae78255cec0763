package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/civicworks/countychat/internal/api"
	"github.com/civicworks/countychat/internal/domain"
	"github.com/civicworks/countychat/internal/service"
)

// maxMessageChars bounds a single user message.
const maxMessageChars = 2000

// ChatStreamer runs one chat turn against an emitter.
type ChatStreamer interface {
	Stream(ctx context.Context, input service.ChatInput, emitter service.TurnEmitter) error
}

type ChatHandler struct {
	svc ChatStreamer
}

func NewChatHandler(svc ChatStreamer) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
}

// Chat handles POST /api/chat. The response is an SSE stream: a metadata
// event, then text events, then the done signal.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > maxMessageChars {
		api.Error(w, http.StatusBadRequest, "message too long")
		return
	}
	if req.Language != "" && req.Language != domain.LanguageEnglish && req.Language != domain.LanguageSpanish {
		api.Error(w, http.StatusBadRequest, "language must be en or es")
		return
	}

	writer, err := api.NewSSEWriter(w)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	input := service.ChatInput{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Language:       req.Language,
	}

	if err := h.svc.Stream(r.Context(), input, writer); err != nil {
		// Stream failed before any event went out; a JSON error is
		// still deliverable.
		api.HandleError(w, err)
		return
	}

	if err := writer.Done(); err != nil {
		log.Printf("failed to write done signal: %v", err)
	}
}
