package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

func TestImporter_Import(t *testing.T) {
	store := newFakeStore(dbaPolicy())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{}
	im := NewImporter(store, logging.Discard(), WithClock(func() time.Time { return fixed }), WithRecorder(rec))

	n := 0
	im.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }

	rules := []Rule{
		{Name: "deny-pii", Priority: 100, Match: MatchCriteria{DataSensitivity: "pii"}, Decision: DecisionSpec{Effect: EffectDeny}},
		{Name: "audit-all", Priority: 100, Decision: DecisionSpec{Effect: EffectAllow, Reason: "default"}},
	}
	count, err := im.Import(context.Background(), "t1", "v2", rules)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	got, err := im.List(context.Background(), "t1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("policies = %d, want 2 (old set replaced)", len(got))
	}
	for i, p := range got {
		if p.Position != i || p.Version != "v2" || p.TenantID != "t1" {
			t.Errorf("policy[%d] = %+v", i, p)
		}
		if !p.CreatedAt.Equal(fixed) {
			t.Errorf("policy[%d].CreatedAt = %v, want %v", i, p.CreatedAt, fixed)
		}
	}
	if got[0].Name != "deny-pii" || got[0].ID != "id-1" {
		t.Errorf("first policy = %+v, want deny-pii with id-1", got[0])
	}
	if rec.imports["success"] != 1 {
		t.Errorf("successful imports recorded = %d, want 1", rec.imports["success"])
	}
}

func TestImporter_ImportValidation(t *testing.T) {
	im := NewImporter(newFakeStore(), logging.Discard())

	rules := []Rule{
		{Name: "ok", Decision: DecisionSpec{Effect: EffectDeny}},
		{Name: "", Decision: DecisionSpec{Effect: "block"}},
		{Name: "no-effect"},
	}
	_, err := im.Import(context.Background(), "", "v1", rules)

	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Import() error = %v, want ValidationError", err)
	}
	want := []string{"tenantId", "rules[1].name", "rules[1].decision.effect", "rules[2].decision.effect"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("fields = %+v, want %v", verr.Fields, want)
	}
	for i, f := range verr.Fields {
		if f.Field != want[i] {
			t.Errorf("field[%d] = %q, want %q", i, f.Field, want[i])
		}
	}
}

func TestImporter_ImportStoreFailureKeepsPreviousSet(t *testing.T) {
	store := newFakeStore(dbaPolicy())
	store.replaceErr = apperrors.NewStoreError("sqlite", "replace_policies", errors.New("disk full"))
	im := NewImporter(store, logging.Discard())

	_, err := im.Import(context.Background(), "t1", "v2", []Rule{{Name: "x", Decision: DecisionSpec{Effect: EffectDeny}}})
	if apperrors.KindOf(err) != apperrors.KindStore {
		t.Fatalf("Import() error kind = %v, want store", apperrors.KindOf(err))
	}

	store.replaceErr = nil
	got, _ := im.List(context.Background(), "t1")
	if len(got) != 1 || got[0].ID != "p-dba" {
		t.Errorf("policies after failed import = %v, want the previous set", ids(got))
	}
}

func TestImporter_ImportEmptyClearsTenant(t *testing.T) {
	store := newFakeStore(dbaPolicy())
	im := NewImporter(store, logging.Discard())

	count, err := im.Import(context.Background(), "t1", "empty", nil)
	if err != nil || count != 0 {
		t.Fatalf("Import() = %d, %v; want 0, nil", count, err)
	}

	engine := NewEngine(store, logging.Discard())
	d, _ := engine.Decide(context.Background(), DecisionInput{TenantID: "t1", Environment: "prd", AgentID: "agent-dba"})
	if d.Path != PathDefault {
		t.Errorf("decision path = %s, want default", d.Path)
	}
}
