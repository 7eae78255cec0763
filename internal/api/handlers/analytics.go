package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/civicworks/countychat/internal/api"
	"github.com/civicworks/countychat/internal/pagination"
	"github.com/civicworks/countychat/internal/repository"
)

// AnalyticsStore aggregates usage statistics for the admin dashboard.
type AnalyticsStore interface {
	Overview(ctx context.Context, days int) (*repository.OverviewStats, error)
	ByDepartment(ctx context.Context, days int) ([]*repository.DepartmentCount, error)
	ByLanguage(ctx context.Context, days int) ([]*repository.LanguageCount, error)
	TopQuestions(ctx context.Context, days, limit int) ([]*repository.QuestionCount, error)
	RecentConversations(ctx context.Context, cursor *pagination.Cursor, limit int) (*repository.ConversationPageResult, error)
}

type AnalyticsHandler struct {
	store AnalyticsStore
}

func NewAnalyticsHandler(store AnalyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

var languageLabels = map[string]string{
	"en": "English",
	"es": "Spanish",
}

type OverviewResponse struct {
	TotalConversations int64    `json:"total_conversations"`
	TotalMessages      int64    `json:"total_messages"`
	AvgResponseTimeMS  float64  `json:"avg_response_time_ms"`
	AvgSatisfaction    *float64 `json:"avg_satisfaction"`
	PeriodDays         int      `json:"period_days"`
}

type DepartmentCountResponse struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type LanguageCountResponse struct {
	Language string `json:"language"`
	Label    string `json:"label"`
	Count    int64  `json:"count"`
}

type QuestionCountResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

type ConversationSummaryResponse struct {
	ID                 string    `json:"id"`
	Language           string    `json:"language"`
	Department         string    `json:"department"`
	StartedAt          time.Time `json:"started_at"`
	MessageCount       int       `json:"message_count"`
	FirstMessage       string    `json:"first_message"`
	SatisfactionRating *int      `json:"satisfaction_rating"`
}

type ConversationPageResponse struct {
	Conversations []*ConversationSummaryResponse `json:"conversations"`
	NextCursor    string                         `json:"next_cursor,omitempty"`
	HasMore       bool                           `json:"has_more"`
}

// Overview handles GET /api/analytics/overview.
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 1, 90)

	stats, err := h.store.Overview(r.Context(), days)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	api.Success(w, http.StatusOK, OverviewResponse{
		TotalConversations: stats.TotalConversations,
		TotalMessages:      stats.TotalMessages,
		AvgResponseTimeMS:  stats.AvgResponseTimeMS,
		AvgSatisfaction:    stats.AvgSatisfaction,
		PeriodDays:         days,
	})
}

// ByDepartment handles GET /api/analytics/departments.
func (h *AnalyticsHandler) ByDepartment(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 1, 90)

	counts, err := h.store.ByDepartment(r.Context(), days)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	resp := make([]*DepartmentCountResponse, 0, len(counts))
	for _, dc := range counts {
		resp = append(resp, &DepartmentCountResponse{Slug: dc.Slug, Name: dc.Name, Count: dc.Count})
	}
	api.Success(w, http.StatusOK, map[string]any{"departments": resp, "period_days": days})
}

// ByLanguage handles GET /api/analytics/languages.
func (h *AnalyticsHandler) ByLanguage(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 1, 90)

	counts, err := h.store.ByLanguage(r.Context(), days)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	resp := make([]*LanguageCountResponse, 0, len(counts))
	for _, lc := range counts {
		label, ok := languageLabels[lc.Language]
		if !ok {
			label = lc.Language
		}
		resp = append(resp, &LanguageCountResponse{Language: lc.Language, Label: label, Count: lc.Count})
	}
	api.Success(w, http.StatusOK, map[string]any{"languages": resp, "period_days": days})
}

// TopQuestions handles GET /api/analytics/top-questions.
func (h *AnalyticsHandler) TopQuestions(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7, 1, 90)
	limit := queryInt(r, "limit", 10, 1, 50)

	questions, err := h.store.TopQuestions(r.Context(), days, limit)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	resp := make([]*QuestionCountResponse, 0, len(questions))
	for _, qc := range questions {
		resp = append(resp, &QuestionCountResponse{Message: qc.Message, Count: qc.Count})
	}
	api.Success(w, http.StatusOK, map[string]any{"questions": resp, "period_days": days})
}

// Conversations handles GET /api/analytics/conversations.
func (h *AnalyticsHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1, 100)

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := h.store.RecentConversations(r.Context(), cursor, limit)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load conversations")
		return
	}

	resp := ConversationPageResponse{
		Conversations: make([]*ConversationSummaryResponse, 0, len(page.Items)),
		NextCursor:    page.NextCursor,
		HasMore:       page.HasMore,
	}
	for _, cs := range page.Items {
		resp.Conversations = append(resp.Conversations, &ConversationSummaryResponse{
			ID:                 cs.ID,
			Language:           cs.Language,
			Department:         cs.Department,
			StartedAt:          cs.StartedAt,
			MessageCount:       cs.MessageCount,
			FirstMessage:       cs.FirstMessage,
			SatisfactionRating: cs.SatisfactionRating,
		})
	}
	api.Success(w, http.StatusOK, resp)
}

// queryInt parses an integer query parameter, clamping to [min, max].
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
