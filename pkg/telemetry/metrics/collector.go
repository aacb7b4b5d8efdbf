package metrics

import (
	"time"

	"mercator-hq/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns every Prometheus metric exported by Arbiter and provides
// the Record* methods that the policy engine, the ledger, the stats
// aggregator, the store and the HTTP layer call.
//
// A nil *Collector is valid and records nothing, as does a collector built
// from a config with Enabled=false.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics *DecisionMetrics
	ledgerMetrics   *LedgerMetrics
	storeMetrics    *StoreMetrics
	requestMetrics  *RequestMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry with Go runtime
// and process collectors is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "arbiter"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		decisionMetrics: NewDecisionMetrics(cfg, registry),
		ledgerMetrics:   NewLedgerMetrics(cfg, registry),
		storeMetrics:    NewStoreMetrics(cfg, registry),
		requestMetrics:  NewRequestMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordDecision records one policy decision.
//
// Parameters:
//   - effect: decision effect ("allow", "deny", "require_approval", ...)
//   - path: how the decision was reached ("matched", "default", "fallback")
//   - duration: time spent deciding, including the store read
func (c *Collector) RecordDecision(effect, path string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.decisionMetrics.RecordDecision(effect, path, duration)
}

// RecordPolicyImport records a policy import attempt.
//
// Parameters:
//   - status: "success" or "error"
//   - rules: number of rules written (0 on error)
func (c *Collector) RecordPolicyImport(status string, rules int) {
	if !c.enabled() {
		return
	}
	c.decisionMetrics.RecordImport(status, rules)
}

// RecordTraceStarted records a trace start.
func (c *Collector) RecordTraceStarted() {
	if !c.enabled() {
		return
	}
	c.ledgerMetrics.tracesStarted.Inc()
}

// RecordTraceEnded records a trace reaching a terminal status.
func (c *Collector) RecordTraceEnded(status string) {
	if !c.enabled() {
		return
	}
	c.ledgerMetrics.tracesEnded.WithLabelValues(status).Inc()
}

// RecordLedgerEvent records an append attempt.
//
// Parameters:
//   - kind: "model_call", "agent_call" or "audit_event"
//   - result: "ok" or "error"
func (c *Collector) RecordLedgerEvent(kind, result string) {
	if !c.enabled() {
		return
	}
	c.ledgerMetrics.events.WithLabelValues(kind, result).Inc()
}

// RecordTruncation records a text field cut to the configured maximum.
func (c *Collector) RecordTruncation(field string) {
	if !c.enabled() {
		return
	}
	c.ledgerMetrics.truncations.WithLabelValues(field).Inc()
}

// RecordSweep records one stale-trace sweeper run.
func (c *Collector) RecordSweep(cancelled int, err error) {
	if !c.enabled() {
		return
	}
	c.ledgerMetrics.RecordSweep(cancelled, err)
}

// RecordStatsQuery records an overview query.
func (c *Collector) RecordStatsQuery(result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.storeMetrics.statsQueries.WithLabelValues(result).Inc()
	c.storeMetrics.statsDuration.Observe(duration.Seconds())
}

// ObserveStoreOperation records the latency and outcome of one store call.
func (c *Collector) ObserveStoreOperation(backend, operation string, duration time.Duration, err error) {
	if !c.enabled() {
		return
	}
	c.storeMetrics.Observe(backend, operation, duration, err)
}

// RecordHTTPRequest records a completed API request.
//
// Parameters:
//   - method: HTTP method
//   - route: chi route pattern (e.g., "/v1/traces/{traceId}/end"), never the raw path
//   - status: response status code
//   - duration: time to produce the response
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.Record(method, route, status, duration)
}
