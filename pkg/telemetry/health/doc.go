// Package health provides liveness, readiness and version endpoints.
//
// Liveness always succeeds while the process runs. Readiness runs the
// registered checks concurrently, each bounded by the check timeout; the
// server registers a "store" check that pings the configured backend.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("store", health.PingCheck(st))
//	r.Get("/health/ready", checker.ReadinessHandler())
package health
