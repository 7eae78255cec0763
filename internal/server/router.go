package server

import (
	"net/http"

	"github.com/civicworks/countychat/internal/api/handlers"
	"github.com/civicworks/countychat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AdminPassword      string
	RateLimiter        *middleware.RateLimiter
	ChatHandler        *handlers.ChatHandler
	DepartmentsHandler *handlers.DepartmentsHandler
	HealthHandler      *handlers.HealthHandler
	RatingHandler      *handlers.RatingHandler
	AnalyticsHandler   *handlers.AnalyticsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}
			r.Post("/chat", cfg.ChatHandler.Chat)
			r.Post("/conversations/{id}/rating", cfg.RatingHandler.Rate)
		})

		r.Get("/departments", cfg.DepartmentsHandler.List)

		r.Route("/analytics", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminPassword))
			r.Get("/overview", cfg.AnalyticsHandler.Overview)
			r.Get("/departments", cfg.AnalyticsHandler.ByDepartment)
			r.Get("/languages", cfg.AnalyticsHandler.ByLanguage)
			r.Get("/top-questions", cfg.AnalyticsHandler.TopQuestions)
			r.Get("/conversations", cfg.AnalyticsHandler.Conversations)
		})
	})

	return r
}
