package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hmoreau/petvision/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const recordColumns = `id, ts, success, prediction_result, proba_cat, proba_dog,
	inference_time_ms, rgpd_consent, filename, user_feedback, user_comment`

func scanRecord(row pgx.Row) (*models.PredictionRecord, error) {
	var r models.PredictionRecord
	err := row.Scan(&r.ID, &r.Timestamp, &r.Success, &r.PredictionResult,
		&r.ProbaCat, &r.ProbaDog, &r.InferenceTimeMS, &r.RGPDConsent,
		&r.Filename, &r.UserFeedback, &r.UserComment)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) SavePrediction(ctx context.Context, rec *models.PredictionRecord) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prediction_feedback
		   (ts, success, prediction_result, proba_cat, proba_dog, inference_time_ms, rgpd_consent, filename, user_feedback, user_comment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		rec.Timestamp, rec.Success, rec.PredictionResult, rec.ProbaCat, rec.ProbaDog,
		rec.InferenceTimeMS, rec.RGPDConsent, rec.Filename, rec.UserFeedback, rec.UserComment,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save prediction: %w", err)
	}
	rec.ID = id
	return id, nil
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id int64) (*models.PredictionRecord, error) {
	r, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM prediction_feedback WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateFeedback(ctx context.Context, id int64, feedback *int, comment *string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin feedback update: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent amendments to the same id so
	// the final state always reflects one complete update.
	var consent bool
	err = tx.QueryRow(ctx,
		`SELECT rgpd_consent FROM prediction_feedback WHERE id = $1 FOR UPDATE`, id,
	).Scan(&consent)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock feedback row: %w", err)
	}
	if !consent {
		return ErrConsentDenied
	}

	if feedback != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE prediction_feedback SET user_feedback = $2 WHERE id = $1`, id, *feedback); err != nil {
			return fmt.Errorf("update user_feedback: %w", err)
		}
	}
	if comment != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE prediction_feedback SET user_comment = $2 WHERE id = $1`, id, *comment); err != nil {
			return fmt.Errorf("update user_comment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit feedback update: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentPredictions(ctx context.Context, limit int) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM prediction_feedback ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	defer rows.Close()

	var records []*models.PredictionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Statistics(ctx context.Context) (*models.PredictionStats, error) {
	stats := &models.PredictionStats{
		PredictionsByClass: map[string]int64{models.ClassCat: 0, models.ClassDog: 0},
	}

	var successes, positive, withFeedback int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(inference_time_ms), 0),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE user_feedback = 1),
		        COUNT(*) FILTER (WHERE user_feedback IS NOT NULL)
		 FROM prediction_feedback`,
	).Scan(&stats.TotalPredictions, &stats.AvgInferenceTimeMS, &successes, &positive, &withFeedback)
	if err != nil {
		return nil, fmt.Errorf("aggregate statistics: %w", err)
	}

	// Zero denominators yield 0%, never a division error.
	if stats.TotalPredictions > 0 {
		stats.SuccessRatePct = float64(successes) / float64(stats.TotalPredictions) * 100
	}
	if withFeedback > 0 {
		stats.SatisfactionRatePct = float64(positive) / float64(withFeedback) * 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT prediction_result, COUNT(*) FROM prediction_feedback
		 WHERE success GROUP BY prediction_result`)
	if err != nil {
		return nil, fmt.Errorf("class distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var class string
		var count int64
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("scan class count: %w", err)
		}
		stats.PredictionsByClass[class] = count
	}
	return stats, rows.Err()
}
