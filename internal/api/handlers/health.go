package handlers

import (
	"context"
	"net/http"

	"github.com/civicworks/countychat/internal/api"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	model string
}

func NewHealthHandler(db Pinger, model string) *HealthHandler {
	return &HealthHandler{db: db, model: model}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Model    string `json:"model"`
}

// Health handles GET /health. A failed database ping degrades the status
// but still answers 200; probes distinguish by body.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "connected", Model: h.model}
	if err := h.db.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "error"
	}
	api.JSON(w, http.StatusOK, resp)
}
