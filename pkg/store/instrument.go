package store

import (
	"context"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/stats"
	"mercator-hq/arbiter/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

// Recorder receives per-operation store metrics.
type Recorder interface {
	ObserveStoreOperation(backend, operation string, duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStoreOperation(string, string, time.Duration, error) {}

// Instrumented decorates a Store with a per-operation timeout, a span and
// latency and error metrics. A call that outlives the timeout fails with a
// retryable StoreError.
type Instrumented struct {
	next     Store
	timeout  time.Duration
	tracer   *tracing.Tracer
	recorder Recorder
}

// Instrument wraps next. A zero timeout disables the deadline; nil tracer
// and recorder are allowed.
func Instrument(next Store, timeout time.Duration, tracer *tracing.Tracer, recorder Recorder) *Instrumented {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Instrumented{next: next, timeout: timeout, tracer: tracer, recorder: recorder}
}

func (s *Instrumented) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.StoreAttributes(s.next.Backend(), op)...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if err != nil && ctx.Err() != nil && apperrors.KindOf(err) == apperrors.KindInternal {
		err = apperrors.NewStoreError(s.next.Backend(), op, ctx.Err())
	}
	s.recorder.ObserveStoreOperation(s.next.Backend(), op, time.Since(start), err)

	failure := storeFailure(err)
	if failure != nil {
		tracing.SetError(span, failure)
		tracing.SetErrorKind(span, string(apperrors.KindOf(failure)))
	}
	tracing.SetStatus(span, failure)
	return err
}

// storeFailure hides expected outcomes (not found, conflict) from the span
// status.
func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindStore, apperrors.KindInternal:
		return err
	}
	return nil
}

func (s *Instrumented) ListPoliciesByTenant(ctx context.Context, tenantID string) ([]policy.Policy, error) {
	var out []policy.Policy
	err := s.do(ctx, "list_policies", func(ctx context.Context) error {
		var err error
		out, err = s.next.ListPoliciesByTenant(ctx, tenantID)
		return err
	})
	return out, err
}

func (s *Instrumented) ReplacePolicies(ctx context.Context, tenantID string, policies []policy.Policy) error {
	return s.do(ctx, "replace_policies", func(ctx context.Context) error {
		return s.next.ReplacePolicies(ctx, tenantID, policies)
	})
}

func (s *Instrumented) InsertTrace(ctx context.Context, t ledger.Trace) error {
	return s.do(ctx, "insert_trace", func(ctx context.Context) error {
		return s.next.InsertTrace(ctx, t)
	})
}

func (s *Instrumented) AppendEvent(ctx context.Context, e ledger.Event) error {
	return s.do(ctx, "append_"+string(e.Kind()), func(ctx context.Context) error {
		return s.next.AppendEvent(ctx, e)
	})
}

func (s *Instrumented) UpdateTraceEnd(ctx context.Context, traceID string, status ledger.Status, summary string, endedAt time.Time) (bool, error) {
	var updated bool
	err := s.do(ctx, "update_trace_end", func(ctx context.Context) error {
		var err error
		updated, err = s.next.UpdateTraceEnd(ctx, traceID, status, summary, endedAt)
		return err
	})
	return updated, err
}

func (s *Instrumented) GetTrace(ctx context.Context, traceID string) (ledger.Trace, error) {
	var out ledger.Trace
	err := s.do(ctx, "get_trace", func(ctx context.Context) error {
		var err error
		out, err = s.next.GetTrace(ctx, traceID)
		return err
	})
	return out, err
}

func (s *Instrumented) ListEvents(ctx context.Context, traceID string) ([]ledger.Event, error) {
	var out []ledger.Event
	err := s.do(ctx, "list_events", func(ctx context.Context) error {
		var err error
		out, err = s.next.ListEvents(ctx, traceID)
		return err
	})
	return out, err
}

func (s *Instrumented) ListStaleTraces(ctx context.Context, cutoff time.Time, limit int) ([]ledger.Trace, error) {
	var out []ledger.Trace
	err := s.do(ctx, "list_stale_traces", func(ctx context.Context) error {
		var err error
		out, err = s.next.ListStaleTraces(ctx, cutoff, limit)
		return err
	})
	return out, err
}

func (s *Instrumented) Aggregate(ctx context.Context, f stats.Filter) (stats.Summary, []stats.UseCaseStats, error) {
	var (
		summary stats.Summary
		rows    []stats.UseCaseStats
	)
	err := s.do(ctx, "aggregate", func(ctx context.Context) error {
		var err error
		summary, rows, err = s.next.Aggregate(ctx, f)
		return err
	})
	return summary, rows, err
}

func (s *Instrumented) Migrate(ctx context.Context) (int, error) {
	return s.next.Migrate(ctx)
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", s.next.Ping)
}

func (s *Instrumented) Backend() string { return s.next.Backend() }

func (s *Instrumented) Close() error { return s.next.Close() }
