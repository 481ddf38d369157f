// Package metrics provides Prometheus instrumentation for parquet-linter.
//
// The linter is a short-lived CLI, so nothing is served over HTTP. Collectors
// register with the default registry and a run can dump them in the node
// exporter textfile format with WriteTextfile.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("rule")
//	diags := rule.Check(file)
//	metrics.RuleDuration.WithLabelValues(rule.Name()).Observe(timer.Stop().Seconds())
//
//	metrics.EstimatorTier.WithLabelValues("tier2").Inc()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EstimatorTier counts cardinality estimates by the tier that produced them.
	// Labels: tier (exact-statistic/tier1/tier2/tier3/fallback)
	EstimatorTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pqlint_estimator_tier_total",
			Help: "Cardinality estimates produced, by tier",
		},
		[]string{"tier"},
	)

	// RuleDuration tracks how long each rule takes to check one file.
	// Labels: rule
	RuleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pqlint_rule_duration_seconds",
			Help: "Time spent evaluating a rule against one file",
			Buckets: []float64{
				1e-6, // 1μs - footer-only checks on small schemas
				1e-5,
				1e-4,
				1e-3, // 1ms - wide schemas
				1e-2,
				1e-1,
			},
		},
		[]string{"rule"},
	)

	// DiagnosticsEmitted counts diagnostics produced by the rule engine.
	// Labels: rule, severity (info/warning)
	DiagnosticsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pqlint_diagnostics_emitted_total",
			Help: "Diagnostics emitted, by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	// RewriteDuration tracks end-to-end rewrite time including validation.
	// Labels: status (success/failure)
	RewriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pqlint_rewrite_duration_seconds",
			Help:    "Rewrite duration including schema validation",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"status"},
	)

	// RewriteBytes is the size of the most recent rewrite output
	RewriteBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pqlint_rewrite_output_bytes",
			Help: "Size in bytes of the last rewritten file",
		},
	)

	// PrescriptionConflicts counts keys assigned different values within one
	// prescription.
	PrescriptionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pqlint_prescription_conflicts_total",
			Help: "Conflicting directives seen while folding prescriptions",
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. The timer can be stopped
// multiple times, each returning the total elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration stops the timer and records the elapsed seconds in h
func (t *Timer) ObserveDuration(h prometheus.Observer) time.Duration {
	d := t.Stop()
	h.Observe(d.Seconds())
	return d
}

// WriteTextfile writes every registered metric to path in the text
// exposition format. The file is written atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
