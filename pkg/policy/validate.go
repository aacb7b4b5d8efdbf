package policy

import (
	"fmt"
	"strings"

	"mercator-hq/arbiter/pkg/apperrors"
)

// Validate checks that the input names a tenant.
func (in DecisionInput) Validate() error {
	if strings.TrimSpace(in.TenantID) == "" {
		return apperrors.NewValidationError("tenantId", "is required")
	}
	return nil
}

// ValidateRules checks the rules of an import. All failing fields are
// reported, named rules[i].field.
func ValidateRules(tenantID string, rules []Rule) error {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(tenantID) == "" {
		verr.Add("tenantId", "is required")
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			verr.Add(fmt.Sprintf("rules[%d].name", i), "is required")
		}
		if r.Decision.Effect == "" {
			verr.Add(fmt.Sprintf("rules[%d].decision.effect", i), "is required")
		} else if !r.Decision.Effect.Valid() {
			verr.Add(fmt.Sprintf("rules[%d].decision.effect", i),
				fmt.Sprintf("must be one of allow, deny, require_approval, override_model, override_agent; got %q", r.Decision.Effect))
		}
	}
	return verr.OrNil()
}
