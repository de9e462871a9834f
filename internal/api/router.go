package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/hmoreau/petvision/internal/api/middleware"
	"github.com/hmoreau/petvision/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler     http.HandlerFunc
	PredictHandler    http.HandlerFunc
	FeedbackHandler   http.HandlerFunc
	StatisticsHandler http.HandlerFunc
	RecentPredictions http.HandlerFunc

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/statistics", orNotImplemented(deps.StatisticsHandler))
	r.Get("/api/v1/recent-predictions", orNotImplemented(deps.RecentPredictions))

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/predict", orNotImplemented(deps.PredictHandler))
		r.Post("/api/v1/feedback", orNotImplemented(deps.FeedbackHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
