package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records dispatch outcomes for the outbox worker.
type OutboxMetrics struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	batchSize prometheus.Histogram
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_dispatch_duration_seconds",
		Help:    "Duration of outbox event dispatches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events dispatched successfully.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed",
		Help: "Outbox event dispatch failures.",
	}, []string{"event_type"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_size",
		Help:    "Number of events fetched per worker poll.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(duration, published, failed, batchSize)
	return &OutboxMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
		batchSize: batchSize,
	}
}

// ObserveDispatch records how long the handler for one event ran.
func (m *OutboxMetrics) ObserveDispatch(eventType string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncPublished increments the published counter for the event type.
func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveBatch records how many events one poll picked up.
func (m *OutboxMetrics) ObserveBatch(size int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
