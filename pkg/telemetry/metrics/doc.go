// Package metrics provides Prometheus metrics collection for Arbiter.
//
// # Metrics Categories
//
//   - Decision Metrics: decisions by effect and path, decision latency, imports
//   - Ledger Metrics: traces started/ended, event appends, truncations, sweeps
//   - Store Metrics: per-operation latency and errors, stats queries
//   - Request Metrics: HTTP API requests by route and status
//
// The decision path label separates "matched" and "default" allows from
// "fallback" allows produced when policy evaluation failed, even though the
// API response is the same.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordDecision("allow", "fallback", 3*time.Millisecond)
//	router.Handle("/metrics", collector.Handler())
//
// A nil *Collector records nothing, so components can be built without
// metrics in tests.
package metrics
