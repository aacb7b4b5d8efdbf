package ledger

import (
	"strings"
	"unicode/utf8"

	"mercator-hq/arbiter/pkg/apperrors"
)

// Validate checks that every required trace field is present.
func (m TraceMeta) Validate() error {
	verr := &apperrors.ValidationError{}
	required := []struct{ field, value string }{
		{"tenantId", m.TenantID},
		{"intentName", m.IntentName},
		{"useCaseId", m.UseCaseID},
		{"riskLevel", m.RiskLevel},
		{"dataSensitivity", m.DataSensitivity},
		{"environment", m.Environment},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Add(r.field, "is required")
		}
	}
	return verr.OrNil()
}

// Validate checks a model call payload.
func (l ModelCallLog) Validate(traceID string) error {
	verr := requireTrace(traceID)
	if strings.TrimSpace(l.Model) == "" {
		verr.Add("model", "is required")
	}
	checkNonNegative(verr, "inputTokens", l.InputTokens)
	checkNonNegative(verr, "outputTokens", l.OutputTokens)
	checkNonNegative(verr, "latencyMs", l.LatencyMs)
	return verr.OrNil()
}

// Validate checks an agent call payload.
func (l AgentCallLog) Validate(traceID string) error {
	verr := requireTrace(traceID)
	if strings.TrimSpace(l.AgentID) == "" {
		verr.Add("agentId", "is required")
	}
	checkNonNegative(verr, "latencyMs", l.LatencyMs)
	return verr.OrNil()
}

// Validate checks an audit event payload.
func (l AuditEventLog) Validate(traceID string) error {
	verr := requireTrace(traceID)
	if strings.TrimSpace(l.EventType) == "" {
		verr.Add("eventType", "is required")
	}
	return verr.OrNil()
}

func validateEnd(traceID string, status Status) error {
	verr := requireTrace(traceID)
	if !status.Terminal() {
		verr.Add("status", "must be one of success, error, cancelled")
	}
	return verr.OrNil()
}

func requireTrace(traceID string) *apperrors.ValidationError {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(traceID) == "" {
		verr.Add("traceId", "is required")
	}
	return verr
}

func checkNonNegative(verr *apperrors.ValidationError, field string, v *int64) {
	if v != nil && *v < 0 {
		verr.Add(field, "must not be negative")
	}
}

// clampText replaces invalid UTF-8 sequences with U+FFFD, so every backend
// stores the same text, then truncates to limit code points.
func clampText(s string, limit int) (string, bool) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return truncateRunes(s, limit)
}

// truncateRunes keeps the first limit code points of s.
func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
