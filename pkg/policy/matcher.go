package policy

import "sort"

// Matches reports whether input satisfies every criterion set in c. A set
// criterion requires the input field to be present and byte-equal; an
// absent input field never equals a set criterion.
func Matches(c MatchCriteria, input DecisionInput) bool {
	return fieldMatches(c.UseCaseID, input.UseCaseID) &&
		fieldMatches(c.Environment, input.Environment) &&
		fieldMatches(c.AgentID, input.AgentID) &&
		fieldMatches(c.IntentName, input.IntentName) &&
		fieldMatches(c.RiskLevel, input.RiskLevel) &&
		fieldMatches(c.DataSensitivity, input.DataSensitivity) &&
		fieldMatches(c.Model, input.Model)
}

func fieldMatches(criterion, value string) bool {
	if criterion == "" {
		return true
	}
	return value != "" && value == criterion
}

// SortPolicies orders policies for evaluation: priority descending, then
// import position ascending, then id ascending.
func SortPolicies(policies []Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		return Less(policies[i], policies[j])
	})
}

// Less reports whether a is evaluated before b.
func Less(a, b Policy) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.ID < b.ID
}

// FirstMatch returns the first policy in evaluation order whose criteria
// match input. policies must already be sorted.
func FirstMatch(policies []Policy, input DecisionInput) (Policy, bool) {
	for _, p := range policies {
		if Matches(p.Match, input) {
			return p, true
		}
	}
	return Policy{}, false
}
