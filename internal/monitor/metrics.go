package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	Registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	ToolRuns          *prometheus.CounterVec
	ToolRunDuration   *prometheus.HistogramVec
	ActiveToolRuns    prometheus.Gauge
	SecurityEvents    *prometheus.CounterVec
	RequestsInFlight  prometheus.Gauge
	ContentSizeBytes  prometheus.Histogram
	OutputSizeBytes   prometheus.Histogram
	AuditRecords      prometheus.Gauge
	AuditArchiveDrops prometheus.Counter
	BreakerState      *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fastx",
				Name:      "operations_total",
				Help:      "Total number of processed operations by name and status.",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fastx",
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds, decode to response.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		OperationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fastx",
				Name:      "operation_errors_total",
				Help:      "Total failed operations by error kind.",
			},
			[]string{"kind"},
		),

		ToolRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fastx",
				Subsystem: "seqkit",
				Name:      "runs_total",
				Help:      "Total seqkit invocations by command and outcome.",
			},
			[]string{"command", "outcome"},
		),

		ToolRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fastx",
				Subsystem: "seqkit",
				Name:      "run_duration_seconds",
				Help:      "Wall time of seqkit invocations.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"command"},
		),

		ActiveToolRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fastx",
				Subsystem: "seqkit",
				Name:      "active_runs",
				Help:      "Number of seqkit processes currently running.",
			},
		),

		SecurityEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fastx",
				Name:      "security_events_total",
				Help:      "Suspicious seqkit arguments rejected, by pattern.",
			},
			[]string{"type"},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fastx",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		ContentSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "fastx",
				Name:      "content_size_bytes",
				Help:      "Size of decoded request content in bytes.",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "fastx",
				Name:      "output_size_bytes",
				Help:      "Size of operation output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
			},
		),

		AuditRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fastx",
				Subsystem: "audit",
				Name:      "records",
				Help:      "Number of records held by the in-memory audit log.",
			},
		),

		AuditArchiveDrops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fastx",
				Subsystem: "audit",
				Name:      "archive_dropped_total",
				Help:      "Audit records not archived because the buffer was full or writes kept failing.",
			},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fastx",
				Subsystem: "seqkit",
				Name:      "breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.OperationErrors,
		m.ToolRuns,
		m.ToolRunDuration,
		m.ActiveToolRuns,
		m.SecurityEvents,
		m.RequestsInFlight,
		m.ContentSizeBytes,
		m.OutputSizeBytes,
		m.AuditRecords,
		m.AuditArchiveDrops,
		m.BreakerState,
	)

	return m
}

// RecordOperation records metrics for a completed operation.
func (m *Metrics) RecordOperation(operation, status string, durationSec float64) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordError records a failed operation by error kind.
func (m *Metrics) RecordError(kind string) {
	m.OperationErrors.WithLabelValues(kind).Inc()
}

// RecordToolRun records one seqkit invocation.
func (m *Metrics) RecordToolRun(command, outcome string, durationSec float64) {
	m.ToolRuns.WithLabelValues(command, outcome).Inc()
	m.ToolRunDuration.WithLabelValues(command).Observe(durationSec)
}

// RecordSecurityEvent records a rejected argument pattern.
func (m *Metrics) RecordSecurityEvent(eventType string) {
	m.SecurityEvents.WithLabelValues(eventType).Inc()
}
