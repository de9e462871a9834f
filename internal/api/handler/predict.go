package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hmoreau/petvision/internal/api/response"
	"github.com/hmoreau/petvision/internal/inference"
)

// maxUploadBytes caps the multipart body; anything larger than this is
// not a pet photo.
const maxUploadBytes = 10 << 20

// ImageClassifier defines the interface the predict handler depends on.
type ImageClassifier interface {
	Predict(ctx context.Context, in inference.PredictInput) (*inference.PredictOutput, error)
}

// NewPredictHandler returns an http.HandlerFunc for POST /api/v1/predict.
// It expects a multipart form with a `file` part and an optional
// `rgpd_consent` field.
func NewPredictHandler(svc ImageClassifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Expected a multipart form with a file field", nil)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"file is required", nil)
			return
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Failed to read uploaded file", nil)
			return
		}
		if len(image) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_IMAGE",
				"Uploaded file is empty", nil)
			return
		}

		consent := false
		if raw := r.FormValue("rgpd_consent"); raw != "" {
			consent, err = strconv.ParseBool(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"rgpd_consent must be a boolean", nil)
				return
			}
		}

		out, err := svc.Predict(r.Context(), inference.PredictInput{
			Image:       image,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			RGPDConsent: consent,
		})
		if err != nil {
			switch {
			case errors.Is(err, inference.ErrModelUnavailable):
				response.Error(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE",
					"The classification model is not available", nil)
			case errors.Is(err, inference.ErrInvalidImage):
				response.Error(w, http.StatusBadRequest, "INVALID_IMAGE",
					"Uploaded file is not an image", nil)
			case errors.Is(err, inference.ErrInferenceFailed):
				response.Error(w, http.StatusInternalServerError, "INFERENCE_FAILED",
					"Classification failed", err.Error())
			default:
				response.Error(w, http.StatusInternalServerError, "STORE_FAILURE",
					"Prediction could not be recorded", nil)
			}
			return
		}

		response.JSON(w, out)
	}
}
