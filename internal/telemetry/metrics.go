// Package telemetry holds the Prometheus metrics exported by the service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ─── Queue ───────────────────────────────────────────────────────────────────

	QueueCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "queue",
		Name:      "cycles_total",
		Help:      "Processing cycles, labelled by outcome (idle, conflict, completed, retry, failed).",
	}, []string{"outcome"})

	QueueCycleDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reve",
		Subsystem: "queue",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of processing cycles that claimed a task.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"outcome"})

	QueueStuckResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "queue",
		Name:      "stuck_resets_total",
		Help:      "Processing tasks reclaimed by the stuck-task sweep.",
	})

	QueueTasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reve",
		Subsystem: "queue",
		Name:      "tasks_inflight",
		Help:      "Tasks currently being processed by this instance.",
	})

	QueueWakeups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "queue",
		Name:      "wakeups_total",
		Help:      "Worker wake-ups by source (notify, schedule, redis).",
	}, []string{"source"})

	// ─── Generation ──────────────────────────────────────────────────────────────

	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "generation",
		Name:      "provider_calls_total",
		Help:      "Provider API calls by provider, operation and result.",
	}, []string{"provider", "operation", "result"})

	// ─── Storage ─────────────────────────────────────────────────────────────────

	StorageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "storage",
		Name:      "uploads_total",
		Help:      "Media re-uploads by kind and result.",
	}, []string{"kind", "result"})

	StorageUploadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "storage",
		Name:      "upload_bytes_total",
		Help:      "Bytes written to media storage.",
	}, []string{"kind"})

	// ─── HTTP ────────────────────────────────────────────────────────────────────

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "code"})

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reve",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ─── Recovery ────────────────────────────────────────────────────────────────

	RecoveryReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reve",
		Subsystem: "recovery",
		Name:      "entities_total",
		Help:      "Entities examined by the recovery scanner, by outcome.",
	}, []string{"outcome"})
)

// Result returns the "ok"/"error" label for err.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
