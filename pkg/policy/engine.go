package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"
	"mercator-hq/arbiter/pkg/telemetry/tracing"
)

// Store is the persistence the policy package needs.
type Store interface {
	// ListPoliciesByTenant returns the tenant's policies ordered by
	// priority DESC, position ASC, id ASC.
	ListPoliciesByTenant(ctx context.Context, tenantID string) ([]Policy, error)

	// ReplacePolicies deletes the tenant's policies and inserts policies
	// in one transaction.
	ReplacePolicies(ctx context.Context, tenantID string, policies []Policy) error
}

// Recorder receives decision and import metrics.
type Recorder interface {
	RecordDecision(effect, path string, duration time.Duration)
	RecordPolicyImport(status string, rules int)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string, string, time.Duration) {}
func (nopRecorder) RecordPolicyImport(string, int)               {}

type options struct {
	recorder Recorder
	now      func() time.Time
}

// Option configures an Engine or Importer.
type Option func(*options)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{recorder: nopRecorder{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine evaluates a tenant's policies against a decision input.
//
// The engine fails open: when the policy set cannot be loaded or evaluated
// it returns allow with PathFallback instead of an error, so the governed
// action is never blocked by an infrastructure failure.
type Engine struct {
	store  Store
	logger *slog.Logger
	opts   options
}

// NewEngine creates an engine reading policies from store.
func NewEngine(store Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		logger: logger.With("component", "policy.engine"),
		opts:   buildOptions(opts),
	}
}

// Decide returns the decision of the highest-priority matching policy, or
// allow when none matches. The only error it returns is a validation error
// for input without a tenant.
func (e *Engine) Decide(ctx context.Context, input DecisionInput) (Decision, error) {
	if err := input.Validate(); err != nil {
		return Decision{}, err
	}
	ctx = logging.WithTenantID(ctx, input.TenantID)

	start := e.opts.now()
	decision, err := e.evaluate(ctx, input)
	if err != nil {
		decision = defaultAllow(PathFallback)
		e.logger.WarnContext(ctx, "policy evaluation failed, allowing",
			"path", decision.Path,
			"error_kind", apperrors.KindOf(err),
			"error", err,
		)
	} else {
		e.logger.DebugContext(ctx, "policy decision",
			"path", decision.Path,
			"effect", decision.Effect,
			"policy_id", decision.PolicyID,
		)
	}

	e.opts.recorder.RecordDecision(string(decision.Effect), string(decision.Path), e.opts.now().Sub(start))
	tracing.SetDecisionAttributes(tracing.SpanFromContext(ctx),
		input.TenantID, decision.PolicyID, string(decision.Effect), string(decision.Path))

	return decision, nil
}

// evaluate is the fallible core of Decide. Errors, including panics, are
// returned so Decide can take the fallback path explicitly.
func (e *Engine) evaluate(ctx context.Context, input DecisionInput) (decision Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("policy evaluation panicked: %v", r), nil)
		}
	}()

	policies, err := e.store.ListPoliciesByTenant(ctx, input.TenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("list policies for tenant %s: %w", input.TenantID, err)
	}
	SortPolicies(policies)

	p, ok := FirstMatch(policies, input)
	if !ok {
		return defaultAllow(PathDefault), nil
	}
	if !p.Decision.Effect.Valid() {
		return Decision{}, apperrors.NewInternalError(
			fmt.Sprintf("policy %s has invalid effect %q", p.ID, p.Decision.Effect), nil)
	}
	return decisionFrom(p), nil
}
