package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civicworks/countychat/internal/api"
	"github.com/civicworks/countychat/internal/domain"
	"github.com/go-chi/chi/v5"
)

// RatingStore records satisfaction ratings on conversations.
type RatingStore interface {
	SetSatisfaction(ctx context.Context, conversationID string, rating int) error
}

type RatingHandler struct {
	store RatingStore
}

func NewRatingHandler(store RatingStore) *RatingHandler {
	return &RatingHandler{store: store}
}

type RatingRequest struct {
	Rating int `json:"rating"`
}

// Rate handles POST /api/conversations/{id}/rating.
func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetSatisfaction(r.Context(), conversationID, req.Rating); err != nil {
		if errors.Is(err, domain.ErrInvalidRating) || errors.Is(err, domain.ErrConversationNotFound) {
			api.HandleError(w, err)
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to record rating")
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "recorded"})
}
