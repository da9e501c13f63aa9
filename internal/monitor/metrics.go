package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the script runner.
type Metrics struct {
	Registry *prometheus.Registry

	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
	GenerationErrors  *prometheus.CounterVec
	ClassifiedErrors  *prometheus.CounterVec
	ActiveExecutions  prometheus.Gauge
	RequestsInFlight  prometheus.Gauge
	ScriptSizeBytes   prometheus.Histogram
	StdoutSizeBytes   prometheus.Histogram
	OutputFilesTotal  prometheus.Counter
	OutputFileBytes   prometheus.Histogram
	RiskyPatterns     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pyrunner",
				Name:      "executions_total",
				Help:      "Total number of script executions by status.",
			},
			[]string{"status"},
		),

		ExecutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pyrunner",
				Name:      "execution_duration_seconds",
				Help:      "Duration of script executions in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		GenerationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pyrunner",
				Name:      "generation_errors_total",
				Help:      "Total script generation failures by reason.",
			},
			[]string{"reason"},
		),

		ClassifiedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pyrunner",
				Name:      "classified_errors_total",
				Help:      "Total classified script errors by kind.",
			},
			[]string{"kind"},
		),

		ActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pyrunner",
				Name:      "active_executions",
				Help:      "Number of currently running script executions.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pyrunner",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being handled.",
			},
		),

		ScriptSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pyrunner",
				Name:      "script_size_bytes",
				Help:      "Size of composed scripts in bytes.",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
		),

		StdoutSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pyrunner",
				Name:      "stdout_size_bytes",
				Help:      "Size of captured stdout in bytes.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
			},
		),

		OutputFilesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pyrunner",
				Name:      "output_files_total",
				Help:      "Total files collected from scratch directories.",
			},
		),

		OutputFileBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pyrunner",
				Name:      "output_file_bytes",
				Help:      "Size of collected output files in bytes.",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
			},
		),

		RiskyPatterns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pyrunner",
				Name:      "risky_patterns_total",
				Help:      "Risky code patterns spotted in submitted user code.",
			},
			[]string{"pattern"},
		),
	}

	reg.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.GenerationErrors,
		m.ClassifiedErrors,
		m.ActiveExecutions,
		m.RequestsInFlight,
		m.ScriptSizeBytes,
		m.StdoutSizeBytes,
		m.OutputFilesTotal,
		m.OutputFileBytes,
		m.RiskyPatterns,
	)

	return m
}

// RecordExecution updates counters for one finished execution.
func (m *Metrics) RecordExecution(status string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(status).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())
}

// RecordGenerationError counts a failed script composition.
func (m *Metrics) RecordGenerationError(reason string) {
	m.GenerationErrors.WithLabelValues(reason).Inc()
}

// RecordClassifiedError counts a classified script failure.
func (m *Metrics) RecordClassifiedError(kind string) {
	m.ClassifiedErrors.WithLabelValues(kind).Inc()
}

// RecordOutputFile counts one collected output file.
func (m *Metrics) RecordOutputFile(sizeBytes int64) {
	m.OutputFilesTotal.Inc()
	m.OutputFileBytes.Observe(float64(sizeBytes))
}

// RecordRiskyPattern counts one inspector detection.
func (m *Metrics) RecordRiskyPattern(pattern string) {
	m.RiskyPatterns.WithLabelValues(pattern).Inc()
}
