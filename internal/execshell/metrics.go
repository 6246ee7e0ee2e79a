package execshell

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for command invocations.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeFailed       = "failed"
	OutcomeTimedOut     = "timed_out"
	OutcomeLaunchFailed = "launch_failed"
)

const outcomeLabelNameConstant = "outcome"

var supportedOutcomes = []string{OutcomeSucceeded, OutcomeFailed, OutcomeTimedOut, OutcomeLaunchFailed}

// Metrics records invocation counters on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	invocations     *prometheus.CounterVec
	duration        prometheus.Histogram
	diagnosticBytes prometheus.Counter
}

// NewMetrics registers the engine collectors on a fresh registry.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derive_command_invocations_total",
				Help: "Total number of external command invocations by outcome.",
			},
			[]string{outcomeLabelNameConstant},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "derive_command_duration_seconds",
				Help:    "Wall-clock duration of external command invocations, in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		diagnosticBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "derive_command_diagnostic_bytes_total",
				Help: "Total bytes drained from external command error streams.",
			},
		),
	}

	metrics.registry.MustRegister(metrics.invocations, metrics.duration, metrics.diagnosticBytes)

	for _, outcome := range supportedOutcomes {
		metrics.invocations.WithLabelValues(outcome)
	}

	return metrics
}

// Gatherer exposes the registry for export.
func (metrics *Metrics) Gatherer() prometheus.Gatherer {
	return metrics.registry
}

// WriteTextfile writes the current values in the Prometheus text format.
func (metrics *Metrics) WriteTextfile(filePath string) error {
	return prometheus.WriteToTextfile(filePath, metrics.registry)
}

func (metrics *Metrics) observe(outcome string, duration time.Duration, diagnosticBytes int) {
	if metrics == nil {
		return
	}
	metrics.invocations.WithLabelValues(outcome).Inc()
	metrics.duration.Observe(duration.Seconds())
	if diagnosticBytes > 0 {
		metrics.diagnosticBytes.Add(float64(diagnosticBytes))
	}
}
