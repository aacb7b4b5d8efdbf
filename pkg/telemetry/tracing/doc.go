// Package tracing provides OpenTelemetry tracing for Arbiter.
//
// Spans are created for every HTTP request and every store call. When
// tracing is enabled spans are exported over OTLP gRPC; otherwise a noop
// tracer is used and nothing leaves the process.
//
// # Sampling Strategies
//
//   - always: sample all traces
//   - never: sample no traces
//   - ratio: sample a share of traces by trace ID
//   - parent_based: follow the caller's traceparent, ratio for root spans
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "store.insert_trace",
//	    trace.WithAttributes(tracing.StoreAttributes("sqlite", "insert_trace")...))
//	defer span.End()
package tracing
