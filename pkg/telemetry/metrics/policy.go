package metrics

import (
	"time"

	"mercator-hq/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks policy decisions and imports.
//
// Metrics:
//   - arbiter_policy_decisions_total: decisions by effect and path (matched/default/fallback)
//   - arbiter_policy_decision_duration_seconds: decision latency by path
//   - arbiter_policy_imports_total: import attempts by status
//   - arbiter_policy_imported_rules_total: rules written by successful imports
type DecisionMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	importsTotal     *prometheus.CounterVec
	importedRules    prometheus.Counter
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_decisions_total",
				Help:      "Total number of policy decisions by effect and decision path",
			},
			[]string{"effect", "path"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_decision_duration_seconds",
				Help:      "Duration of policy decisions in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"path"},
		),

		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_imports_total",
				Help:      "Total number of policy set imports",
			},
			[]string{"status"},
		),

		importedRules: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_imported_rules_total",
				Help:      "Total number of policy rules written by imports",
			},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.decisionDuration,
		dm.importsTotal,
		dm.importedRules,
	)

	return dm
}

// RecordDecision records one decision.
func (dm *DecisionMetrics) RecordDecision(effect, path string, duration time.Duration) {
	dm.decisionsTotal.WithLabelValues(effect, path).Inc()
	dm.decisionDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordImport records one import attempt.
func (dm *DecisionMetrics) RecordImport(status string, rules int) {
	dm.importsTotal.WithLabelValues(status).Inc()
	if rules > 0 {
		dm.importedRules.Add(float64(rules))
	}
}
