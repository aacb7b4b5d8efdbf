package policy

import (
	"time"
)

// Effect is the outcome category of a policy decision.
type Effect string

const (
	EffectAllow           Effect = "allow"
	EffectDeny            Effect = "deny"
	EffectRequireApproval Effect = "require_approval"
	EffectOverrideModel   Effect = "override_model"
	EffectOverrideAgent   Effect = "override_agent"
)

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool {
	switch e {
	case EffectAllow, EffectDeny, EffectRequireApproval, EffectOverrideModel, EffectOverrideAgent:
		return true
	}
	return false
}

// Path records how a decision was reached. It is logged and counted but
// never serialized into an API response.
type Path string

const (
	// PathMatched means a policy matched the input.
	PathMatched Path = "matched"

	// PathDefault means no policy matched and the default allow applied.
	PathDefault Path = "default"

	// PathFallback means evaluation failed and the engine failed open.
	PathFallback Path = "fallback"
)

// MatchCriteria holds optional equality predicates. An empty field is a
// wildcard.
type MatchCriteria struct {
	UseCaseID       string `json:"useCaseId,omitempty" yaml:"use_case_id,omitempty"`
	Environment     string `json:"environment,omitempty" yaml:"environment,omitempty"`
	AgentID         string `json:"agentId,omitempty" yaml:"agent_id,omitempty"`
	IntentName      string `json:"intentName,omitempty" yaml:"intent_name,omitempty"`
	RiskLevel       string `json:"riskLevel,omitempty" yaml:"risk_level,omitempty"`
	DataSensitivity string `json:"dataSensitivity,omitempty" yaml:"data_sensitivity,omitempty"`
	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
}

// DecisionSpec is what a policy decides when it matches. OverrideModel is
// meaningful only for override_model and OverrideAgent only for
// override_agent; neither is enforced.
type DecisionSpec struct {
	Effect        Effect `json:"effect" yaml:"effect"`
	OverrideModel string `json:"overrideModel,omitempty" yaml:"override_model,omitempty"`
	OverrideAgent string `json:"overrideAgent,omitempty" yaml:"override_agent,omitempty"`
	Reason        string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Policy is a persisted, tenant-scoped rule. Policies are created and
// replaced wholesale by import and never mutated individually.
type Policy struct {
	ID       string        `json:"id"`
	TenantID string        `json:"tenantId"`
	Name     string        `json:"name"`
	Priority int           `json:"priority"`
	Version  string        `json:"version,omitempty"`
	Position int           `json:"position"`
	Match    MatchCriteria `json:"match"`
	Decision DecisionSpec  `json:"decision"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rule is one entry of an import request or bundle file.
type Rule struct {
	Name     string        `json:"name" yaml:"name"`
	Priority int           `json:"priority" yaml:"priority"`
	Match    MatchCriteria `json:"match" yaml:"match"`
	Decision DecisionSpec  `json:"decision" yaml:"decision"`
}

// DecisionInput describes an intended action. Only TenantID is required.
type DecisionInput struct {
	TenantID        string `json:"tenantId"`
	UseCaseID       string `json:"useCaseId,omitempty"`
	Environment     string `json:"environment,omitempty"`
	AgentID         string `json:"agentId,omitempty"`
	IntentName      string `json:"intentName,omitempty"`
	RiskLevel       string `json:"riskLevel,omitempty"`
	DataSensitivity string `json:"dataSensitivity,omitempty"`
	Model           string `json:"model,omitempty"`
}

// Decision is the engine's answer. PolicyID and PolicyName are set only
// when a policy matched.
type Decision struct {
	Effect        Effect `json:"effect"`
	OverrideModel string `json:"overrideModel,omitempty"`
	OverrideAgent string `json:"overrideAgent,omitempty"`
	Reason        string `json:"reason,omitempty"`
	PolicyID      string `json:"policyId,omitempty"`
	PolicyName    string `json:"policyName,omitempty"`

	Path Path `json:"-"`
}

func defaultAllow(path Path) Decision {
	return Decision{Effect: EffectAllow, Path: path}
}

func decisionFrom(p Policy) Decision {
	return Decision{
		Effect:        p.Decision.Effect,
		OverrideModel: p.Decision.OverrideModel,
		OverrideAgent: p.Decision.OverrideAgent,
		Reason:        p.Decision.Reason,
		PolicyID:      p.ID,
		PolicyName:    p.Name,
		Path:          PathMatched,
	}
}
