package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/hmoreau/petvision/internal/api/handler"
	"github.com/hmoreau/petvision/internal/inference"
	"github.com/hmoreau/petvision/internal/store"
	"github.com/hmoreau/petvision/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub services ---

type stubClassifier struct {
	out    *inference.PredictOutput
	err    error
	gotIn  inference.PredictInput
	called bool
}

func (s *stubClassifier) Predict(_ context.Context, in inference.PredictInput) (*inference.PredictOutput, error) {
	s.called = true
	s.gotIn = in
	return s.out, s.err
}

type stubFeedback struct {
	err         error
	gotID       int64
	gotFeedback *int
	gotComment  *string
}

func (s *stubFeedback) SubmitFeedback(_ context.Context, id int64, feedback *int, comment *string) error {
	s.gotID = id
	s.gotFeedback = feedback
	s.gotComment = comment
	return s.err
}

type stubStats struct {
	stats     *models.PredictionStats
	statsErr  error
	recent    []*models.PredictionRecord
	recentErr error
	gotLimit  int
}

func (s *stubStats) Statistics(_ context.Context) (*models.PredictionStats, error) {
	return s.stats, s.statsErr
}

func (s *stubStats) Recent(_ context.Context, limit int) ([]*models.PredictionRecord, error) {
	s.gotLimit = limit
	return s.recent, s.recentErr
}

type stubHealth struct {
	status inference.HealthStatus
}

func (s *stubHealth) HealthCheck(_ context.Context) inference.HealthStatus {
	return s.status
}

// --- helpers ---

func multipartImage(t *testing.T, filename, consent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3})
	require.NoError(t, err)

	if consent != "" {
		require.NoError(t, mw.WriteField("rgpd_consent", consent))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data envelope, got %s", w.Body.String())
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	return errObj
}

func postForm(h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/feedback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ========================================
// Predict Handler Tests
// ========================================

func TestPredict_Success(t *testing.T) {
	svc := &stubClassifier{out: &inference.PredictOutput{
		Prediction:      "Cat",
		Confidence:      92.5,
		Probabilities:   inference.Probabilities{Cat: 92.5, Dog: 7.5},
		InferenceTimeMS: 41,
		FeedbackID:      17,
	}}
	h := handler.NewPredictHandler(svc)

	body, contentType := multipartImage(t, "whiskers.jpg", "true")
	req := httptest.NewRequest("POST", "/api/v1/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "Cat", data["prediction"])
	assert.Equal(t, 92.5, data["confidence"])
	probs := data["probabilities"].(map[string]any)
	assert.Equal(t, 92.5, probs["cat"])
	assert.Equal(t, 7.5, probs["dog"])
	assert.Equal(t, float64(17), data["feedback_id"])

	assert.Equal(t, "whiskers.jpg", svc.gotIn.Filename)
	assert.Equal(t, "image/jpeg", svc.gotIn.ContentType)
	assert.True(t, svc.gotIn.RGPDConsent)
	assert.NotEmpty(t, svc.gotIn.Image)
}

func TestPredict_ConsentDefaultsFalse(t *testing.T) {
	svc := &stubClassifier{out: &inference.PredictOutput{Prediction: "Dog"}}
	h := handler.NewPredictHandler(svc)

	body, contentType := multipartImage(t, "rex.jpg", "")
	req := httptest.NewRequest("POST", "/api/v1/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.gotIn.RGPDConsent)
}

func TestPredict_MissingFile(t *testing.T) {
	h := handler.NewPredictHandler(&stubClassifier{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("rgpd_consent", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w)["code"])
}

func TestPredict_NotMultipart(t *testing.T) {
	h := handler.NewPredictHandler(&stubClassifier{})

	req := httptest.NewRequest("POST", "/api/v1/predict", strings.NewReader(`{"image":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict_BadConsentValue(t *testing.T) {
	svc := &stubClassifier{}
	h := handler.NewPredictHandler(svc)

	body, contentType := multipartImage(t, "a.jpg", "maybe")
	req := httptest.NewRequest("POST", "/api/v1/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.called)
}

func TestPredict_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"model unavailable", inference.ErrModelUnavailable, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE"},
		{"invalid image", inference.ErrInvalidImage, http.StatusBadRequest, "INVALID_IMAGE"},
		{"inference failed", inference.ErrInferenceFailed, http.StatusInternalServerError, "INFERENCE_FAILED"},
		{"store failure", errors.New("insert failed"), http.StatusInternalServerError, "STORE_FAILURE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := handler.NewPredictHandler(&stubClassifier{err: tc.err})

			body, contentType := multipartImage(t, "a.jpg", "true")
			req := httptest.NewRequest("POST", "/api/v1/predict", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantCode, decodeError(t, w)["code"])
		})
	}
}

func TestPredict_InferenceFailureCarriesCause(t *testing.T) {
	cause := fmt.Errorf("%w: %s", inference.ErrInferenceFailed, "cuda out of memory")
	h := handler.NewPredictHandler(&stubClassifier{err: cause})

	body, contentType := multipartImage(t, "a.jpg", "true")
	req := httptest.NewRequest("POST", "/api/v1/predict", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errObj := decodeError(t, w)
	assert.Equal(t, "INFERENCE_FAILED", errObj["code"])
	assert.Contains(t, errObj["details"], "cuda out of memory")
}

// ========================================
// Feedback Handler Tests
// ========================================

func TestFeedback_Success(t *testing.T) {
	svc := &stubFeedback{}
	h := handler.NewFeedbackHandler(svc)

	w := postForm(h, url.Values{
		"feedback_id":   {"42"},
		"user_feedback": {"1"},
		"user_comment":  {"spot on"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "updated", data["status"])
	assert.Equal(t, float64(42), data["feedback_id"])

	assert.Equal(t, int64(42), svc.gotID)
	require.NotNil(t, svc.gotFeedback)
	assert.Equal(t, 1, *svc.gotFeedback)
	require.NotNil(t, svc.gotComment)
	assert.Equal(t, "spot on", *svc.gotComment)
}

func TestFeedback_CommentOnly(t *testing.T) {
	svc := &stubFeedback{}
	h := handler.NewFeedbackHandler(svc)

	w := postForm(h, url.Values{
		"feedback_id":  {"7"},
		"user_comment": {"blurry photo"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.gotFeedback)
	require.NotNil(t, svc.gotComment)
}

func TestFeedback_MissingID(t *testing.T) {
	h := handler.NewFeedbackHandler(&stubFeedback{})

	w := postForm(h, url.Values{"user_feedback": {"1"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w)["code"])
}

func TestFeedback_OutOfRangeValue(t *testing.T) {
	h := handler.NewFeedbackHandler(&stubFeedback{})

	w := postForm(h, url.Values{
		"feedback_id":   {"7"},
		"user_feedback": {"3"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errObj := decodeError(t, w)
	assert.Equal(t, "INVALID_REQUEST", errObj["code"])
	assert.Contains(t, errObj["message"], "0 or 1")
}

func TestFeedback_NothingToUpdate(t *testing.T) {
	h := handler.NewFeedbackHandler(&stubFeedback{})

	w := postForm(h, url.Values{"feedback_id": {"7"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedback_NotFound(t *testing.T) {
	h := handler.NewFeedbackHandler(&stubFeedback{err: store.ErrNotFound})

	w := postForm(h, url.Values{
		"feedback_id":   {"9999"},
		"user_feedback": {"0"},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RECORD_NOT_FOUND", decodeError(t, w)["code"])
}

func TestFeedback_ConsentDenied(t *testing.T) {
	h := handler.NewFeedbackHandler(&stubFeedback{err: store.ErrConsentDenied})

	w := postForm(h, url.Values{
		"feedback_id":   {"8"},
		"user_feedback": {"0"},
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CONSENT_DENIED", decodeError(t, w)["code"])
}

// ========================================
// Statistics Handler Tests
// ========================================

func TestStatistics_Success(t *testing.T) {
	h := handler.NewStatisticsHandler(&stubStats{stats: &models.PredictionStats{
		TotalPredictions:    12,
		AvgInferenceTimeMS:  38.5,
		SuccessRatePct:      91.7,
		SatisfactionRatePct: 80,
		PredictionsByClass:  map[string]int64{"cat": 7, "dog": 4, "error": 1},
	}})

	req := httptest.NewRequest("GET", "/api/v1/statistics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(12), data["total_predictions"])
	byClass := data["predictions_by_class"].(map[string]any)
	assert.Equal(t, float64(7), byClass["cat"])
}

func TestStatistics_StoreError(t *testing.T) {
	h := handler.NewStatisticsHandler(&stubStats{statsErr: errors.New("db down")})

	req := httptest.NewRequest("GET", "/api/v1/statistics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecentPredictions_DefaultLimit(t *testing.T) {
	svc := &stubStats{recent: []*models.PredictionRecord{{ID: 2}, {ID: 1}}}
	h := handler.NewRecentPredictionsHandler(svc)

	req := httptest.NewRequest("GET", "/api/v1/recent-predictions", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, svc.gotLimit)
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["count"])
	assert.Len(t, data["predictions"], 2)
}

func TestRecentPredictions_CustomLimit(t *testing.T) {
	svc := &stubStats{}
	h := handler.NewRecentPredictionsHandler(svc)

	req := httptest.NewRequest("GET", "/api/v1/recent-predictions?limit=25", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, svc.gotLimit)
	data := decodeData(t, w)
	assert.Equal(t, float64(0), data["count"])
}

func TestRecentPredictions_BadLimit(t *testing.T) {
	h := handler.NewRecentPredictionsHandler(&stubStats{})

	req := httptest.NewRequest("GET", "/api/v1/recent-predictions?limit=-1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ========================================
// Health Handler Tests
// ========================================

func TestHealth_Healthy(t *testing.T) {
	h := handler.NewHealthHandler(&stubHealth{status: inference.HealthStatus{
		Status:      "healthy",
		ModelLoaded: true,
		Database:    "connected",
		Monitoring:  inference.MonitoringStatus{Metrics: true, Alerting: true},
	}})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, true, data["model_loaded"])
}

func TestHealth_DegradedStill200(t *testing.T) {
	h := handler.NewHealthHandler(&stubHealth{status: inference.HealthStatus{
		Status:      "degraded",
		ModelLoaded: true,
		Database:    "error: connection refused",
	}})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "degraded", data["status"])
	assert.Contains(t, data["database"], "error")
}
