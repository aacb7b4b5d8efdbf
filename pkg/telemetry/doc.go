// Package telemetry groups Arbiter's observability packages.
//
// # Components
//
//   - logging: slog logger with request, tenant, trace and principal context
//     fields and redaction of sensitive attributes
//   - metrics: Prometheus collectors for decisions, the ledger, store calls
//     and HTTP requests
//   - tracing: OpenTelemetry spans for decisions, ledger writes and store calls
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", health.PingCheck(st))
//
// Sensitive values never reach the log output. Attributes whose key names a
// credential (password, token, api_key, secret) are replaced, and passwords
// embedded in connection strings are masked.
package telemetry
