// Package metrics wraps the Prometheus counters, histogram, and gauge
// exported by the gateway. All operations are fire-and-forget: a sink
// must never fail or delay the caller's primary result.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink records inference and feedback events. Implementations must be
// safe for concurrent use.
type Sink interface {
	// ObservePrediction records one successful prediction: a usage
	// tick, a per-class tick, and the inference latency.
	ObservePrediction(class string, took time.Duration)
	// RecordFeedback records one amendment with the given polarity
	// ("positive" or "negative").
	RecordFeedback(polarity string)
	// SetDatabaseConnected updates the connectivity gauge (1/0).
	SetDatabaseConnected(connected bool)
}

// PromSink implements Sink on a Prometheus registry.
type PromSink struct {
	predictions *prometheus.CounterVec
	feedback    *prometheus.CounterVec
	requests    prometheus.Counter
	latency     prometheus.Histogram
	dbConnected prometheus.Gauge
}

// NewPromSink registers the gateway metrics on reg and returns the sink.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	s := &PromSink{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petvision_predictions_total",
			Help: "Total number of successful predictions by class.",
		}, []string{"class"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petvision_feedback_total",
			Help: "Total number of user feedback submissions by polarity.",
		}, []string{"polarity"}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petvision_requests_total",
			Help: "Total number of inference requests that reached the model.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "petvision_inference_duration_seconds",
			Help:    "Model inference duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		dbConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "petvision_database_connected",
			Help: "Database connection status (1=connected, 0=disconnected).",
		}),
	}
	reg.MustRegister(s.predictions, s.feedback, s.requests, s.latency, s.dbConnected)
	return s
}

func (s *PromSink) ObservePrediction(class string, took time.Duration) {
	s.requests.Inc()
	s.predictions.WithLabelValues(class).Inc()
	s.latency.Observe(took.Seconds())
}

func (s *PromSink) RecordFeedback(polarity string) {
	s.feedback.WithLabelValues(polarity).Inc()
}

func (s *PromSink) SetDatabaseConnected(connected bool) {
	if connected {
		s.dbConnected.Set(1)
	} else {
		s.dbConnected.Set(0)
	}
}

// NopSink discards every observation. Injected when metrics export is
// disabled so callers never branch on the flag.
type NopSink struct{}

func (NopSink) ObservePrediction(string, time.Duration) {}
func (NopSink) RecordFeedback(string)                   {}
func (NopSink) SetDatabaseConnected(bool)               {}

var _ Sink = (*PromSink)(nil)
var _ Sink = NopSink{}
