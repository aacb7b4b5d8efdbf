// Package server provides the HTTP server of an Arbiter node.
//
// It mounts the API routes, the health probes and the Prometheus endpoint
// on a chi router, wraps them in the middleware chain and manages the
// listener lifecycle.
//
// # Routes
//
//   - /v1/...: the API (see package handlers)
//   - GET /health/live: liveness probe, always 200 while the process serves
//   - GET /health/ready: readiness probe, 503 when the store ping fails
//   - GET /version: build information
//   - GET /metrics: Prometheus exposition, when metrics are enabled
//
// Probe and metrics paths come from the telemetry config.
//
// # Middleware Chain
//
// Outermost first: Recovery, RequestID, Tracing, Logging, CORS, BodyLimit,
// Timeout. Probes and /metrics bypass the body limit and the timeout.
//
// # Graceful Shutdown
//
// Start blocks until its context is cancelled, then stops accepting
// connections and waits up to ShutdownTimeout for in-flight requests.
// Signal handling is left to the caller.
package server
