package store

import (
	"context"
	"errors"

	"github.com/hmoreau/petvision/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrConsentDenied = errors.New("rgpd consent not given")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// SavePrediction inserts a new feedback-log row and returns the
	// assigned id. Persistence failures propagate to the caller.
	SavePrediction(ctx context.Context, rec *models.PredictionRecord) (int64, error)

	GetPrediction(ctx context.Context, id int64) (*models.PredictionRecord, error)

	// UpdateFeedback applies a partial amendment to an existing row.
	// Returns ErrNotFound for an unknown id and ErrConsentDenied when
	// the row was created without RGPD consent. The update is
	// all-or-nothing: concurrent amendments to the same id serialize
	// on a row lock.
	UpdateFeedback(ctx context.Context, id int64, feedback *int, comment *string) error

	// RecentPredictions returns up to limit rows, newest first.
	RecentPredictions(ctx context.Context, limit int) ([]*models.PredictionRecord, error)

	// Statistics computes the aggregate snapshot over the whole log.
	Statistics(ctx context.Context) (*models.PredictionStats, error)
}
