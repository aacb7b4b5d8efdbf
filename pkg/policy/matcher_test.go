package policy

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		criteria MatchCriteria
		input    DecisionInput
		want     bool
	}{
		{
			name:     "empty criteria matches everything",
			criteria: MatchCriteria{},
			input:    DecisionInput{TenantID: "t1"},
			want:     true,
		},
		{
			name:     "all set criteria equal",
			criteria: MatchCriteria{Environment: "prd", AgentID: "agent-dba"},
			input:    DecisionInput{TenantID: "t1", Environment: "prd", AgentID: "agent-dba", Model: "gpt-4o"},
			want:     true,
		},
		{
			name:     "one criterion differs",
			criteria: MatchCriteria{Environment: "prd", AgentID: "agent-dba"},
			input:    DecisionInput{TenantID: "t1", Environment: "dev", AgentID: "agent-dba"},
			want:     false,
		},
		{
			name:     "absent input never equals a set criterion",
			criteria: MatchCriteria{RiskLevel: "high"},
			input:    DecisionInput{TenantID: "t1"},
			want:     false,
		},
		{
			name:     "comparison is case sensitive",
			criteria: MatchCriteria{Model: "GPT-4o"},
			input:    DecisionInput{TenantID: "t1", Model: "gpt-4o"},
			want:     false,
		},
		{
			name:     "no trimming",
			criteria: MatchCriteria{UseCaseID: "support"},
			input:    DecisionInput{TenantID: "t1", UseCaseID: "support "},
			want:     false,
		},
		{
			name: "every field",
			criteria: MatchCriteria{
				UseCaseID: "uc", Environment: "prd", AgentID: "a", IntentName: "i",
				RiskLevel: "r", DataSensitivity: "pii", Model: "m",
			},
			input: DecisionInput{
				TenantID: "t1", UseCaseID: "uc", Environment: "prd", AgentID: "a", IntentName: "i",
				RiskLevel: "r", DataSensitivity: "pii", Model: "m",
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.criteria, tt.input); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortPolicies(t *testing.T) {
	policies := []Policy{
		{ID: "c", Priority: 5, Position: 0},
		{ID: "b", Priority: 10, Position: 2},
		{ID: "a", Priority: 10, Position: 2},
		{ID: "d", Priority: 10, Position: 1},
		{ID: "e", Priority: -1, Position: 0},
	}
	SortPolicies(policies)

	want := []string{"d", "a", "b", "c", "e"}
	for i, p := range policies {
		if p.ID != want[i] {
			t.Fatalf("order[%d] = %s, want %s (full order %v)", i, p.ID, want[i], ids(policies))
		}
	}
}

func ids(policies []Policy) []string {
	out := make([]string, len(policies))
	for i, p := range policies {
		out[i] = p.ID
	}
	return out
}
