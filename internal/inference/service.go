// Package inference contains the request orchestrator: the single
// entry point that sequences model invocation, timing, persistence,
// metrics export, and alerting for every inference request.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hmoreau/petvision/internal/alert"
	"github.com/hmoreau/petvision/internal/cache"
	"github.com/hmoreau/petvision/internal/metrics"
	"github.com/hmoreau/petvision/internal/store"
	"github.com/hmoreau/petvision/pkg/models"
)

var (
	ErrModelUnavailable = errors.New("model not available")
	ErrInvalidImage     = errors.New("uploaded content is not an image")
	ErrInferenceFailed  = errors.New("inference failed")
)

const (
	statsCacheTTL    = 5 * time.Second
	sideEffectBudget = 5 * time.Second
)

// PredictInput is one inference request as received from the HTTP layer.
type PredictInput struct {
	Image       []byte
	Filename    string
	ContentType string
	RGPDConsent bool
}

// PredictOutput is the caller-facing result of a successful inference.
// Probabilities and confidence are percentages.
type PredictOutput struct {
	Prediction      string        `json:"prediction"`
	Confidence      float64       `json:"confidence"`
	Probabilities   Probabilities `json:"probabilities"`
	InferenceTimeMS int64         `json:"inference_time_ms"`
	FeedbackID      int64         `json:"feedback_id"`
}

// Probabilities carries the per-class scores as percentages.
type Probabilities struct {
	Cat float64 `json:"cat"`
	Dog float64 `json:"dog"`
}

// MonitoringStatus reports which observability sinks are active.
type MonitoringStatus struct {
	Metrics  bool `json:"metrics"`
	Alerting bool `json:"alerting"`
}

// HealthStatus is the result of one health probe.
type HealthStatus struct {
	Status      string           `json:"status"`
	ModelLoaded bool             `json:"model_loaded"`
	Database    string           `json:"database"`
	Monitoring  MonitoringStatus `json:"monitoring"`
}

// Service orchestrates inference requests across the predictor, the
// feedback store, and the observability sinks. Store and predictor
// errors reach the caller; sink errors never do.
type Service struct {
	predictor        models.Predictor
	store            store.Store
	cache            cache.Cache
	metrics          metrics.Sink
	alerts           alert.Notifier
	latencyThreshold time.Duration
	monitoring       MonitoringStatus

	dbConnected atomic.Bool
}

// NewService creates a new Service. The database is assumed connected
// at construction time; health probes update the state from there.
func NewService(p models.Predictor, st store.Store, ca cache.Cache, sink metrics.Sink,
	notifier alert.Notifier, latencyThreshold time.Duration, monitoring MonitoringStatus) *Service {
	s := &Service{
		predictor:        p,
		store:            st,
		cache:            ca,
		metrics:          sink,
		alerts:           notifier,
		latencyThreshold: latencyThreshold,
		monitoring:       monitoring,
	}
	s.dbConnected.Store(true)
	return s
}

// Predict runs one inference attempt end to end. On success the record
// is persisted and a store failure propagates: the feedback log is the
// audit of record. On model failure a best-effort failure row is
// written and the original error is surfaced wrapped in
// ErrInferenceFailed.
func (s *Service) Predict(ctx context.Context, in PredictInput) (*PredictOutput, error) {
	if !s.predictor.Ready() {
		return nil, ErrModelUnavailable
	}
	if !isImage(in.ContentType, in.Image) {
		return nil, ErrInvalidImage
	}

	start := time.Now()
	result, err := s.predictor.Classify(ctx, in.Image)
	took := time.Since(start)
	tookMS := took.Milliseconds()

	if err != nil {
		s.recordFailure(ctx, tookMS, err)
		return nil, fmt.Errorf("%w: %s", ErrInferenceFailed, err)
	}

	s.metrics.ObservePrediction(result.Label, took)

	rec := &models.PredictionRecord{
		Timestamp:        time.Now().UTC(),
		Success:          true,
		PredictionResult: result.Label,
		ProbaCat:         result.ProbaCat * 100,
		ProbaDog:         result.ProbaDog * 100,
		InferenceTimeMS:  tookMS,
		RGPDConsent:      in.RGPDConsent,
	}
	if in.RGPDConsent && in.Filename != "" {
		rec.Filename = &in.Filename
	}

	id, err := s.store.SavePrediction(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.invalidateStats()

	if s.latencyThreshold > 0 && took > s.latencyThreshold {
		s.fireAsync(func(actx context.Context) {
			s.alerts.HighLatency(actx, took, s.latencyThreshold)
		})
	}

	return &PredictOutput{
		Prediction:      displayLabel(result.Label),
		Confidence:      result.Confidence() * 100,
		Probabilities:   Probabilities{Cat: rec.ProbaCat, Dog: rec.ProbaDog},
		InferenceTimeMS: tookMS,
		FeedbackID:      id,
	}, nil
}

// recordFailure writes the failure row for the audit trail. A second
// failure while recording the first is logged and swallowed; there is
// no retry.
func (s *Service) recordFailure(ctx context.Context, tookMS int64, cause error) {
	msg := cause.Error()
	_, err := s.store.SavePrediction(ctx, &models.PredictionRecord{
		Timestamp:        time.Now().UTC(),
		Success:          false,
		PredictionResult: models.ClassError,
		InferenceTimeMS:  tookMS,
		UserComment:      &msg,
	})
	if err != nil {
		slog.Warn("failure record not persisted", "error", err, "cause", msg)
		return
	}
	s.invalidateStats()
}

// SubmitFeedback applies a user amendment to an existing record and, on
// success, records the feedback polarity in the metrics sink.
func (s *Service) SubmitFeedback(ctx context.Context, id int64, feedback *int, comment *string) error {
	if err := s.store.UpdateFeedback(ctx, id, feedback, comment); err != nil {
		return err
	}

	if feedback != nil {
		polarity := "negative"
		if *feedback == models.FeedbackSatisfied {
			polarity = "positive"
		}
		s.metrics.RecordFeedback(polarity)
	}

	s.invalidateStats()
	return nil
}

// Statistics returns the aggregate snapshot, served from the cache
// when fresh. Cache failures fall through to a direct store read.
func (s *Service) Statistics(ctx context.Context) (*models.PredictionStats, error) {
	key := cache.StatisticsKey()

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var stats models.PredictionStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.store.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, key, data, statsCacheTTL)
	}
	return stats, nil
}

// Recent returns up to limit records, newest first, with the filename
// redacted on records stored without consent.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.PredictionRecord, error) {
	records, err := s.store.RecentPredictions(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if !r.RGPDConsent {
			r.Filename = nil
		}
	}
	return records, nil
}

// HealthCheck probes the feedback store. The disconnect alert fires
// only on the connected → disconnected transition, not on every
// failing probe.
func (s *Service) HealthCheck(ctx context.Context) HealthStatus {
	hs := HealthStatus{
		Status:      "healthy",
		ModelLoaded: s.predictor.Ready(),
		Database:    "connected",
		Monitoring:  s.monitoring,
	}

	if err := s.store.Ping(ctx); err != nil {
		hs.Status = "degraded"
		hs.Database = fmt.Sprintf("error: %v", err)
		s.metrics.SetDatabaseConnected(false)
		if s.dbConnected.Swap(false) {
			s.fireAsync(func(actx context.Context) {
				s.alerts.DatabaseDisconnected(actx, err)
			})
		}
		return hs
	}

	s.dbConnected.Store(true)
	s.metrics.SetDatabaseConnected(true)
	return hs
}

// fireAsync runs an alert delivery off the request path with its own
// bounded context so a sink outage cannot stall the response.
func (s *Service) fireAsync(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectBudget)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Service) invalidateStats() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cache.StatisticsKey()); err != nil {
		slog.Debug("stats cache invalidation failed", "error", err)
	}
}

// isImage accepts the upload when either the declared content type or
// the sniffed content is an image.
func isImage(contentType string, data []byte) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	if len(data) == 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

func displayLabel(class string) string {
	switch class {
	case models.ClassCat:
		return "Cat"
	case models.ClassDog:
		return "Dog"
	default:
		return class
	}
}
