package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hmoreau/petvision/internal/api/response"
	"github.com/hmoreau/petvision/pkg/models"
)

// StatsReader defines the interface the statistics handlers depend on.
type StatsReader interface {
	Statistics(ctx context.Context) (*models.PredictionStats, error)
	Recent(ctx context.Context, limit int) ([]*models.PredictionRecord, error)
}

// NewStatisticsHandler returns an http.HandlerFunc for GET /api/v1/statistics.
func NewStatisticsHandler(svc StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Statistics(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to compute statistics", nil)
			return
		}
		response.JSON(w, stats)
	}
}

// NewRecentPredictionsHandler returns an http.HandlerFunc for
// GET /api/v1/recent-predictions. The `limit` query parameter defaults
// to 10.
func NewRecentPredictionsHandler(svc StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be a positive integer", nil)
				return
			}
			limit = v
		}

		records, err := svc.Recent(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load recent predictions", nil)
			return
		}
		if records == nil {
			records = []*models.PredictionRecord{}
		}

		response.JSON(w, map[string]any{
			"predictions": records,
			"count":       len(records),
		})
	}
}
