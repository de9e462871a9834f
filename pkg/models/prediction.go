// Package models contains shared data models used across the PetVision codebase.
package models

import "time"

// Prediction result classes stored in the feedback log.
const (
	ClassCat   = "cat"
	ClassDog   = "dog"
	ClassError = "error"
)

// Feedback polarity values accepted on amendment.
const (
	FeedbackUnsatisfied = 0
	FeedbackSatisfied   = 1
)

// PredictionRecord is one row of the feedback log: a single inference
// attempt, successful or not. Only UserFeedback and UserComment are
// mutable after creation, and only when RGPDConsent is true.
type PredictionRecord struct {
	ID               int64     `db:"id"                json:"id"`
	Timestamp        time.Time `db:"ts"                json:"timestamp"`
	Success          bool      `db:"success"           json:"success"`
	PredictionResult string    `db:"prediction_result" json:"prediction_result"`
	ProbaCat         float64   `db:"proba_cat"         json:"proba_cat"`
	ProbaDog         float64   `db:"proba_dog"         json:"proba_dog"`
	InferenceTimeMS  int64     `db:"inference_time_ms" json:"inference_time_ms"`
	RGPDConsent      bool      `db:"rgpd_consent"      json:"rgpd_consent"`
	Filename         *string   `db:"filename"          json:"filename,omitempty"`
	UserFeedback     *int      `db:"user_feedback"     json:"user_feedback,omitempty"`
	UserComment      *string   `db:"user_comment"      json:"user_comment,omitempty"`
}

// PredictionStats is the aggregate snapshot served by /api/v1/statistics.
type PredictionStats struct {
	TotalPredictions    int64            `json:"total_predictions"`
	AvgInferenceTimeMS  float64          `json:"avg_inference_time_ms"`
	SuccessRatePct      float64          `json:"success_rate_pct"`
	SatisfactionRatePct float64          `json:"satisfaction_rate_pct"`
	PredictionsByClass  map[string]int64 `json:"predictions_by_class"`
}
