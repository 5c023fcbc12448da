// Package metrics holds the Prometheus collectors for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thoughtstream_sessions_started_total",
		Help: "Stream sessions started, by provider",
	}, []string{"provider"})

	sessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thoughtstream_sessions_finished_total",
		Help: "Stream sessions finished, by provider and outcome",
	}, []string{"provider", "outcome"})

	sessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thoughtstream_session_duration_seconds",
		Help:    "Wall time from first upstream read to the terminal event",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"provider"})

	sessionChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "thoughtstream_session_chunks",
		Help:    "Upstream fragments received per session",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	fieldEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thoughtstream_field_events_total",
		Help: "Field events emitted across all sessions",
	})

	workerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thoughtstream_worker_failures_total",
		Help: "Background job failures, by stage (persist, publish, enqueue)",
	}, []string{"stage"})
)

// Stages for WorkerFailed.
const (
	StagePersist = "persist"
	StagePublish = "publish"
	StageEnqueue = "enqueue"
)

// SessionStarted counts a new session for provider.
func SessionStarted(provider string) {
	sessionsStarted.WithLabelValues(provider).Inc()
}

// SessionFinished records the outcome and shape of a finished session.
func SessionFinished(provider, outcome string, seconds float64, chunks, fields int) {
	sessionsFinished.WithLabelValues(provider, outcome).Inc()
	sessionDuration.WithLabelValues(provider).Observe(seconds)
	sessionChunks.Observe(float64(chunks))
	fieldEvents.Add(float64(fields))
}

// WorkerFailed counts a failed background job at stage.
func WorkerFailed(stage string) {
	workerFailures.WithLabelValues(stage).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
