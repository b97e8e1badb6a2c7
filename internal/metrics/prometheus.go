// Package metrics exports record store operation metrics to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"stockroom/internal/core"
)

const (
	namespace = "stockroom"

	statusSuccess = "success"
	statusError   = "error"

	auditOperation = "audit.append"
)

var _ core.MetricsRecorder = (*Recorder)(nil)

// Recorder implements core.MetricsRecorder with a counter and a histogram per
// operation, plus a dedicated counter for audit entries that failed to persist.
type Recorder struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	auditFailures prometheus.Counter
}

// NewRecorder registers its collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Record store operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Record store operation latency, including the table write.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit entries that could not be persisted.",
		}),
	}
	r.registry.MustRegister(r.operations, r.durations, r.auditFailures)
	return r
}

// Gatherer exposes the collected metrics.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// Observe records one operation outcome.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := statusError
	if success {
		status = statusSuccess
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	if operation == auditOperation && !success {
		r.auditFailures.Inc()
	}
}

// WriteTextfile dumps the current values in the text exposition format, for
// node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
