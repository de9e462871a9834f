package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/hmoreau/petvision/internal/api/response"
	"github.com/hmoreau/petvision/internal/store"
	"github.com/hmoreau/petvision/pkg/models"
)

// FeedbackRecorder defines the interface the feedback handler depends on.
type FeedbackRecorder interface {
	SubmitFeedback(ctx context.Context, id int64, feedback *int, comment *string) error
}

// NewFeedbackHandler returns an http.HandlerFunc for POST /api/v1/feedback.
// It accepts form fields `feedback_id` (required), `user_feedback`
// (0 or 1) and `user_comment`; at least one of the latter two must be set.
func NewFeedbackHandler(svc FeedbackRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Invalid form body", nil)
			return
		}

		rawID := r.FormValue("feedback_id")
		if rawID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"feedback_id is required", nil)
			return
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"feedback_id must be a positive integer", nil)
			return
		}

		var feedback *int
		if raw := r.FormValue("user_feedback"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || (v != models.FeedbackUnsatisfied && v != models.FeedbackSatisfied) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"user_feedback must be 0 or 1", nil)
				return
			}
			feedback = &v
		}

		var comment *string
		if raw := r.FormValue("user_comment"); raw != "" {
			comment = &raw
		}

		if feedback == nil && comment == nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"user_feedback or user_comment is required", nil)
			return
		}

		if err := svc.SubmitFeedback(r.Context(), id, feedback, comment); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "RECORD_NOT_FOUND",
					"No prediction with that feedback_id", nil)
			case errors.Is(err, store.ErrConsentDenied):
				response.Error(w, http.StatusForbidden, "CONSENT_DENIED",
					"The record owner did not consent to feedback storage", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Feedback could not be recorded", nil)
			}
			return
		}

		response.JSON(w, map[string]any{
			"status":      "updated",
			"feedback_id": id,
		})
	}
}
