package metrics

import (
	"mercator-hq/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the trace lifecycle and ledger appends.
//
// Metrics:
//   - arbiter_ledger_traces_started_total
//   - arbiter_ledger_traces_ended_total{status}
//   - arbiter_ledger_events_total{kind, result}
//   - arbiter_ledger_truncations_total{field}
//   - arbiter_ledger_sweeps_total{result}
//   - arbiter_ledger_swept_traces_total
type LedgerMetrics struct {
	tracesStarted prometheus.Counter
	tracesEnded   *prometheus.CounterVec
	events        *prometheus.CounterVec
	truncations   *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweptTraces   prometheus.Counter
}

// NewLedgerMetrics creates and registers ledger metrics with the provided registry.
func NewLedgerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LedgerMetrics {
	lm := &LedgerMetrics{
		tracesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ledger_traces_started_total",
			Help:      "Total number of traces started",
		}),
		tracesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ledger_traces_ended_total",
			Help:      "Total number of traces ended by terminal status",
		}, []string{"status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ledger_events_total",
			Help:      "Total number of ledger event appends by kind and result",
		}, []string{"kind", "result"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ledger_truncations_total",
			Help:      "Total number of text fields truncated before persistence",
		}, []string{"field"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ledger_sweeps_total",
			Help:      "Total number of stale-trace sweeper runs by result",
		}, []string{"result"}),
		sweptTraces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ledger_swept_traces_total",
			Help:      "Total number of stale traces cancelled by the sweeper",
		}),
	}

	registry.MustRegister(
		lm.tracesStarted,
		lm.tracesEnded,
		lm.events,
		lm.truncations,
		lm.sweeps,
		lm.sweptTraces,
	)

	return lm
}

// RecordSweep records one sweeper run.
func (lm *LedgerMetrics) RecordSweep(cancelled int, err error) {
	if err != nil {
		lm.sweeps.WithLabelValues("error").Inc()
	} else {
		lm.sweeps.WithLabelValues("success").Inc()
	}
	if cancelled > 0 {
		lm.sweptTraces.Add(float64(cancelled))
	}
}
