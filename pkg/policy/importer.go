package policy

import (
	"context"
	"log/slog"

	"mercator-hq/arbiter/pkg/telemetry/logging"

	"github.com/google/uuid"
)

// Importer replaces tenant policy sets.
type Importer struct {
	store  Store
	logger *slog.Logger
	opts   options
	newID  func() string
}

// NewImporter creates an importer writing to store.
func NewImporter(store Store, logger *slog.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:  store,
		logger: logger.With("component", "policy.importer"),
		opts:   buildOptions(opts),
		newID:  uuid.NewString,
	}
}

// Import replaces the whole policy set of tenantID with rules and returns
// the number of policies written. Each rule gets a fresh id and its index
// as position. The replacement is atomic: on error the previous set stays.
func (im *Importer) Import(ctx context.Context, tenantID, version string, rules []Rule) (int, error) {
	if err := ValidateRules(tenantID, rules); err != nil {
		im.opts.recorder.RecordPolicyImport("invalid", 0)
		return 0, err
	}
	ctx = logging.WithTenantID(ctx, tenantID)

	now := im.opts.now().UTC()
	policies := make([]Policy, len(rules))
	for i, r := range rules {
		policies[i] = Policy{
			ID:        im.newID(),
			TenantID:  tenantID,
			Name:      r.Name,
			Priority:  r.Priority,
			Version:   version,
			Position:  i,
			Match:     r.Match,
			Decision:  r.Decision,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := im.store.ReplacePolicies(ctx, tenantID, policies); err != nil {
		im.opts.recorder.RecordPolicyImport("error", 0)
		im.logger.ErrorContext(ctx, "policy import failed", "version", version, "error", err)
		return 0, err
	}

	im.opts.recorder.RecordPolicyImport("success", len(policies))
	im.logger.InfoContext(ctx, "policies imported", "version", version, "count", len(policies))
	return len(policies), nil
}

// List returns the tenant's current policies in evaluation order.
func (im *Importer) List(ctx context.Context, tenantID string) ([]Policy, error) {
	if err := (DecisionInput{TenantID: tenantID}).Validate(); err != nil {
		return nil, err
	}
	policies, err := im.store.ListPoliciesByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	SortPolicies(policies)
	return policies, nil
}
