package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// SamplerAlways samples all traces.
	SamplerAlways = "always"

	// SamplerNever samples no traces.
	SamplerNever = "never"

	// SamplerRatio samples a share of traces by trace ID hash.
	SamplerRatio = "ratio"

	// SamplerParentBased follows the caller's sampling decision and falls
	// back to the configured ratio for root spans.
	SamplerParentBased = "parent_based"
)

// createSampler builds a sampler for the strategy.
//
// The always, never and ratio strategies are root samplers: they decide
// regardless of any incoming traceparent. parent_based respects the
// parent's sampled flag, which keeps a caller's trace whole across the
// decision and ledger calls it makes.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	if err := ValidateSampling(strategy, ratio); err != nil {
		return nil, err
	}

	switch strategy {
	case SamplerAlways:
		return sdktrace.AlwaysSample(), nil
	case SamplerNever:
		return sdktrace.NeverSample(), nil
	case SamplerRatio:
		return sdktrace.TraceIDRatioBased(ratio), nil
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
	}
}

// ValidateSampling validates a sampling strategy and ratio.
func ValidateSampling(strategy string, ratio float64) error {
	switch strategy {
	case SamplerAlways, SamplerNever, SamplerRatio, SamplerParentBased:
	default:
		return fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio, parent_based)", strategy)
	}

	if strategy == SamplerRatio || strategy == SamplerParentBased {
		if ratio < 0.0 || ratio > 1.0 {
			return fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
	}
	return nil
}
