package policy

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

func dbaPolicy() Policy {
	return Policy{
		ID:       "p-dba",
		TenantID: "t1",
		Name:     "dba-in-prod",
		Priority: 10,
		Match:    MatchCriteria{Environment: "prd", AgentID: "agent-dba"},
		Decision: DecisionSpec{Effect: EffectRequireApproval},
	}
}

func TestEngine_Decide(t *testing.T) {
	tests := []struct {
		name     string
		policies []Policy
		input    DecisionInput
		want     Decision
	}{
		{
			name:     "require approval for dba in prod",
			policies: []Policy{dbaPolicy()},
			input:    DecisionInput{TenantID: "t1", Environment: "prd", AgentID: "agent-dba"},
			want:     Decision{Effect: EffectRequireApproval, PolicyID: "p-dba", PolicyName: "dba-in-prod", Path: PathMatched},
		},
		{
			name:     "dev falls through to default allow",
			policies: []Policy{dbaPolicy()},
			input:    DecisionInput{TenantID: "t1", Environment: "dev", AgentID: "agent-dba"},
			want:     Decision{Effect: EffectAllow, Path: PathDefault},
		},
		{
			name:     "tenant without policies",
			policies: []Policy{dbaPolicy()},
			input:    DecisionInput{TenantID: "t2", Environment: "prd", AgentID: "agent-dba"},
			want:     Decision{Effect: EffectAllow, Path: PathDefault},
		},
		{
			name: "higher priority wildcard beats lower priority specific",
			policies: []Policy{
				dbaPolicy(),
				{ID: "p-deny", TenantID: "t1", Name: "freeze", Priority: 50, Decision: DecisionSpec{Effect: EffectDeny, Reason: "change freeze"}},
			},
			input: DecisionInput{TenantID: "t1", Environment: "prd", AgentID: "agent-dba"},
			want:  Decision{Effect: EffectDeny, Reason: "change freeze", PolicyID: "p-deny", PolicyName: "freeze", Path: PathMatched},
		},
		{
			name: "equal priority resolved by import position",
			policies: []Policy{
				{ID: "z", TenantID: "t1", Name: "second", Priority: 1, Position: 1, Decision: DecisionSpec{Effect: EffectDeny}},
				{ID: "a", TenantID: "t1", Name: "first", Priority: 1, Position: 0,
					Decision: DecisionSpec{Effect: EffectOverrideModel, OverrideModel: "gpt-4o-mini"}},
			},
			input: DecisionInput{TenantID: "t1"},
			want:  Decision{Effect: EffectOverrideModel, OverrideModel: "gpt-4o-mini", PolicyID: "a", PolicyName: "first", Path: PathMatched},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(newFakeStore(tt.policies...), logging.Discard())
			got, err := engine.Decide(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEngine_DecideFailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{name: "store error", store: &fakeStore{listErr: errStoreDown}},
		{name: "store panics", store: &fakeStore{panicOn: true}},
		{
			name: "malformed row",
			store: newFakeStore(Policy{ID: "bad", TenantID: "t1", Name: "bad",
				Decision: DecisionSpec{Effect: "quarantine"}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			engine := NewEngine(tt.store, logging.Discard(), WithRecorder(rec))

			got, err := engine.Decide(context.Background(), DecisionInput{TenantID: "t1"})
			if err != nil {
				t.Fatalf("Decide() error = %v, want nil", err)
			}
			want := Decision{Effect: EffectAllow, Path: PathFallback}
			if got != want {
				t.Errorf("Decide() = %+v, want %+v", got, want)
			}
			if len(rec.decisions) != 1 || rec.decisions[0].path != "fallback" {
				t.Errorf("recorded decisions = %+v, want one fallback", rec.decisions)
			}
		})
	}
}

func TestEngine_EvaluateReturnsError(t *testing.T) {
	engine := NewEngine(&fakeStore{listErr: errStoreDown}, logging.Discard())

	_, err := engine.evaluate(context.Background(), DecisionInput{TenantID: "t1"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("evaluate() error = %v, want wrapped deadline exceeded", err)
	}
	if !apperrors.IsRetryable(err) {
		t.Error("store timeout should stay retryable through evaluate")
	}
}

func TestEngine_DecideRequiresTenant(t *testing.T) {
	engine := NewEngine(newFakeStore(), logging.Discard())

	_, err := engine.Decide(context.Background(), DecisionInput{Environment: "prd"})
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Decide() error = %v, want ValidationError", err)
	}
	if verr.Fields[0].Field != "tenantId" {
		t.Errorf("field = %q, want tenantId", verr.Fields[0].Field)
	}
}
