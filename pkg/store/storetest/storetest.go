// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/stats"
	"mercator-hq/arbiter/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a migrated, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// base is a fixed instant with microsecond precision, which every backend
// round-trips exactly.
var base = time.Date(2025, 3, 10, 12, 0, 0, 123456000, time.UTC)

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Migrate/Idempotent", testMigrateIdempotent},
		{"Policies/ReplaceAndList", testReplaceAndList},
		{"Policies/ReplaceClears", testReplaceClears},
		{"Policies/TenantIsolation", testPolicyTenantIsolation},
		{"Traces/InsertAndGet", testInsertAndGet},
		{"Traces/GetMissing", testGetMissing},
		{"Traces/EndOnce", testEndOnce},
		{"Events/MissingTrace", testAppendMissingTrace},
		{"Events/Ordering", testEventOrdering},
		{"Events/Payloads", testEventPayloads},
		{"Traces/ListStale", testListStale},
		{"Aggregate/Counts", testAggregateCounts},
		{"Aggregate/Filters", testAggregateFilters},
		{"Aggregate/Empty", testAggregateEmpty},
		{"Aggregate/SubMicrosecondBounds", testAggregateSubMicrosecondBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func testMigrateIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	v, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, v)
	require.NoError(t, s.Ping(ctx))
}

func newPolicy(tenant, id string, priority, position int) policy.Policy {
	return policy.Policy{
		ID:        id,
		TenantID:  tenant,
		Name:      "rule-" + id,
		Priority:  priority,
		Version:   "v1",
		Position:  position,
		Match:     policy.MatchCriteria{UseCaseID: "support", Environment: "prod"},
		Decision:  policy.DecisionSpec{Effect: policy.EffectRequireApproval, Reason: "review " + id},
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testReplaceAndList(t *testing.T, s store.Store) {
	ctx := context.Background()
	low := newPolicy("acme", "p-low", 1, 0)
	high := newPolicy("acme", "p-high", 10, 1)
	tieB := newPolicy("acme", "p-b", 5, 3)
	tieA := newPolicy("acme", "p-a", 5, 2)
	tieA.Match = policy.MatchCriteria{}
	tieA.Decision = policy.DecisionSpec{Effect: policy.EffectOverrideModel, OverrideModel: "small", OverrideAgent: "agent-2"}

	require.NoError(t, s.ReplacePolicies(ctx, "acme", []policy.Policy{low, high, tieB, tieA}))

	got, err := s.ListPoliciesByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 4)

	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"p-high", "p-a", "p-b", "p-low"}, ids)
	assert.Equal(t, tieA, got[1])
	assert.Equal(t, high, got[0])
}

func testReplaceClears(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.ReplacePolicies(ctx, "acme", []policy.Policy{
		newPolicy("acme", "p1", 1, 0),
		newPolicy("acme", "p2", 1, 1),
	}))
	require.NoError(t, s.ReplacePolicies(ctx, "acme", []policy.Policy{newPolicy("acme", "p3", 1, 0)}))

	got, err := s.ListPoliciesByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p3", got[0].ID)

	require.NoError(t, s.ReplacePolicies(ctx, "acme", nil))
	got, err = s.ListPoliciesByTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testPolicyTenantIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.ReplacePolicies(ctx, "acme", []policy.Policy{newPolicy("acme", "a1", 1, 0)}))
	require.NoError(t, s.ReplacePolicies(ctx, "globex", []policy.Policy{newPolicy("globex", "g1", 1, 0)}))
	require.NoError(t, s.ReplacePolicies(ctx, "globex", nil))

	got, err := s.ListPoliciesByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)

	got, err = s.ListPoliciesByTenant(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func newTrace(id, tenant, useCase, env string, createdAt time.Time) ledger.Trace {
	return ledger.Trace{
		ID:              id,
		TenantID:        tenant,
		IntentName:      "summarize",
		UseCaseID:       useCase,
		RiskLevel:       "low",
		DataSensitivity: "internal",
		Environment:     env,
		CreatedAt:       createdAt,
		Status:          ledger.StatusRunning,
	}
}

func testInsertAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	tr := newTrace("t1", "acme", "support", "prod", base)
	tr.Extra = ledger.MustValue(map[string]any{"ticket": "T-1", "priority": 2})
	require.NoError(t, s.InsertTrace(ctx, tr))

	got, err := s.GetTrace(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, ledger.StatusRunning, got.Status)
	assert.Nil(t, got.EndedAt)
	assert.True(t, base.Equal(got.CreatedAt), "created_at = %v", got.CreatedAt)
	assert.JSONEq(t, `{"ticket":"T-1","priority":2}`, got.Extra.String())

	require.Error(t, s.InsertTrace(ctx, tr), "duplicate id must be rejected")
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.GetTrace(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func testEndOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTrace(ctx, newTrace("t1", "acme", "support", "prod", base)))

	ended := base.Add(time.Minute)
	ok, err := s.UpdateTraceEnd(ctx, "t1", ledger.StatusSuccess, "done", ended)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateTraceEnd(ctx, "t1", ledger.StatusError, "again", ended.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "a terminal trace must not be updated")

	ok, err = s.UpdateTraceEnd(ctx, "missing", ledger.StatusError, "", ended)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetTrace(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSuccess, got.Status)
	assert.Equal(t, "done", got.ResultSummary)
	require.NotNil(t, got.EndedAt)
	assert.True(t, ended.Equal(*got.EndedAt))
}

func modelCall(id, traceID string, at time.Time) *ledger.ModelCallEvent {
	return &ledger.ModelCallEvent{
		EventMeta:    ledger.EventMeta{ID: id, TraceID: traceID, CreatedAt: at},
		ModelCallLog: ledger.ModelCallLog{Provider: "openai", Model: "gpt-4o"},
	}
}

func agentCall(id, traceID string, at time.Time) *ledger.AgentCallEvent {
	return &ledger.AgentCallEvent{
		EventMeta:    ledger.EventMeta{ID: id, TraceID: traceID, CreatedAt: at},
		AgentCallLog: ledger.AgentCallLog{AgentID: "billing-agent"},
	}
}

func auditEvent(id, traceID string, at time.Time) *ledger.AuditEvent {
	return &ledger.AuditEvent{
		EventMeta:     ledger.EventMeta{ID: id, TraceID: traceID, CreatedAt: at},
		AuditEventLog: ledger.AuditEventLog{EventType: "approval_requested"},
	}
}

func testAppendMissingTrace(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, e := range []ledger.Event{
		modelCall("m1", "ghost", base),
		agentCall("a1", "ghost", base),
		auditEvent("e1", "ghost", base),
	} {
		err := s.AppendEvent(ctx, e)
		require.Error(t, err, "kind %s", e.Kind())
		assert.True(t, apperrors.IsNotFound(err), "kind %s: got %v", e.Kind(), err)
	}
}

func testEventOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTrace(ctx, newTrace("t1", "acme", "support", "prod", base)))

	// Same timestamp for "b" and "c" so the id breaks the tie across tables.
	events := []ledger.Event{
		auditEvent("d", "t1", base.Add(3*time.Second)),
		modelCall("c", "t1", base.Add(2*time.Second)),
		agentCall("b", "t1", base.Add(2*time.Second)),
		modelCall("a", "t1", base.Add(time.Second)),
	}
	for _, e := range events {
		require.NoError(t, s.AppendEvent(ctx, e))
	}

	got, err := s.ListEvents(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 4)

	var order []string
	for _, e := range got {
		order = append(order, fmt.Sprintf("%s:%s", e.Kind(), e.Meta().ID))
	}
	assert.Equal(t, []string{"model_call:a", "agent_call:b", "model_call:c", "audit_event:d"}, order)
}

func testEventPayloads(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTrace(ctx, newTrace("t1", "acme", "support", "prod", base)))

	in, out, latency := int64(120), int64(48), int64(850)
	mc := modelCall("m1", "t1", base)
	mc.Prompt = "hello"
	mc.Response = "world"
	mc.InputTokens, mc.OutputTokens, mc.LatencyMs = &in, &out, &latency
	mc.Metadata = ledger.MustValue(map[string]any{"temperature": 0.2})

	ac := agentCall("a1", "t1", base.Add(time.Second))
	ac.Action = "refund"
	ac.Status = "ok"
	ac.Request = ledger.MustValue(map[string]any{"amount": 10})
	ac.Response = ledger.MustValue([]string{"accepted"})

	ae := auditEvent("e1", "t1", base.Add(2*time.Second))
	ae.Actor = "alice"
	ae.Payload = ledger.MustValue("approved")

	for _, e := range []ledger.Event{mc, ac, ae} {
		require.NoError(t, s.AppendEvent(ctx, e))
	}

	got, err := s.ListEvents(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	gotMC, ok := got[0].(*ledger.ModelCallEvent)
	require.True(t, ok, "first event is %T", got[0])
	assert.Equal(t, "hello", gotMC.Prompt)
	assert.Equal(t, "world", gotMC.Response)
	require.NotNil(t, gotMC.InputTokens)
	assert.Equal(t, int64(120), *gotMC.InputTokens)
	assert.Equal(t, int64(850), *gotMC.LatencyMs)
	assert.JSONEq(t, `{"temperature":0.2}`, gotMC.Metadata.String())
	assert.True(t, base.Equal(gotMC.CreatedAt))

	gotAC, ok := got[1].(*ledger.AgentCallEvent)
	require.True(t, ok, "second event is %T", got[1])
	assert.Equal(t, "refund", gotAC.Action)
	assert.Nil(t, gotAC.LatencyMs)
	assert.JSONEq(t, `{"amount":10}`, gotAC.Request.String())
	assert.JSONEq(t, `["accepted"]`, gotAC.Response.String())

	gotAE, ok := got[2].(*ledger.AuditEvent)
	require.True(t, ok, "third event is %T", got[2])
	assert.Equal(t, "alice", gotAE.Actor)
	assert.Equal(t, `"approved"`, gotAE.Payload.String())
}

func testListStale(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTrace(ctx, newTrace("old-b", "acme", "support", "prod", base)))
	require.NoError(t, s.InsertTrace(ctx, newTrace("old-a", "acme", "support", "prod", base)))
	require.NoError(t, s.InsertTrace(ctx, newTrace("older", "globex", "support", "prod", base.Add(-time.Hour))))
	require.NoError(t, s.InsertTrace(ctx, newTrace("fresh", "acme", "support", "prod", base.Add(2*time.Hour))))
	require.NoError(t, s.InsertTrace(ctx, newTrace("done", "acme", "support", "prod", base.Add(-2*time.Hour))))
	_, err := s.UpdateTraceEnd(ctx, "done", ledger.StatusSuccess, "", base)
	require.NoError(t, err)

	cutoff := base.Add(time.Hour)
	got, err := s.ListStaleTraces(ctx, cutoff, 0)
	require.NoError(t, err)
	var ids []string
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"older", "old-a", "old-b"}, ids)

	got, err = s.ListStaleTraces(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func seedAggregate(t *testing.T, s store.Store) {
	ctx := context.Background()
	traces := []ledger.Trace{
		newTrace("t1", "acme", "support", "prod", base),
		newTrace("t2", "acme", "support", "prod", base.Add(time.Hour)),
		newTrace("t3", "acme", "billing", "staging", base.Add(2*time.Hour)),
		newTrace("t4", "globex", "support", "prod", base),
		newTrace("t5", "acme", "onboarding", "prod", base.Add(-48*time.Hour)),
	}
	for _, tr := range traces {
		require.NoError(t, s.InsertTrace(ctx, tr))
	}
	events := []ledger.Event{
		modelCall("m1", "t1", base),
		modelCall("m2", "t1", base),
		agentCall("a1", "t1", base),
		modelCall("m3", "t2", base),
		agentCall("a2", "t3", base),
		agentCall("a3", "t3", base),
		auditEvent("e1", "t3", base),
		modelCall("m4", "t4", base),
	}
	for _, e := range events {
		require.NoError(t, s.AppendEvent(ctx, e))
	}
}

func testAggregateCounts(t *testing.T, s store.Store) {
	seedAggregate(t, s)

	summary, rows, err := s.Aggregate(context.Background(), stats.Filter{
		TenantID: "acme",
		From:     base.Add(-time.Hour),
		To:       base.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, stats.Summary{TotalTraces: 3, TotalModelCalls: 3, TotalAgentCalls: 3}, summary)
	require.Len(t, rows, 2)

	assert.Equal(t, "support", rows[0].UseCaseID)
	assert.Equal(t, int64(2), rows[0].Traces)
	assert.Equal(t, int64(3), rows[0].ModelCalls)
	assert.Equal(t, int64(1), rows[0].AgentCalls)
	assert.True(t, base.Add(time.Hour).Equal(rows[0].LastTraceAt), "last = %v", rows[0].LastTraceAt)

	assert.Equal(t, "billing", rows[1].UseCaseID)
	assert.Equal(t, int64(1), rows[1].Traces)
	assert.Equal(t, int64(0), rows[1].ModelCalls)
	assert.Equal(t, int64(2), rows[1].AgentCalls)
}

func testAggregateFilters(t *testing.T, s store.Store) {
	seedAggregate(t, s)
	ctx := context.Background()

	summary, rows, err := s.Aggregate(ctx, stats.Filter{
		TenantID:    "acme",
		Environment: "staging",
		From:        base.Add(-time.Hour),
		To:          base.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalTraces)
	require.Len(t, rows, 1)
	assert.Equal(t, "billing", rows[0].UseCaseID)

	// Both bounds are inclusive.
	summary, _, err = s.Aggregate(ctx, stats.Filter{TenantID: "acme", From: base, To: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalTraces)
	assert.Equal(t, int64(3), summary.TotalModelCalls)
}

func testAggregateEmpty(t *testing.T, s store.Store) {
	summary, rows, err := s.Aggregate(context.Background(), stats.Filter{
		TenantID: "nobody",
		From:     base.Add(-time.Hour),
		To:       base,
	})
	require.NoError(t, err)
	assert.Equal(t, stats.Summary{}, summary)
	assert.Empty(t, rows)
}

func testAggregateSubMicrosecondBounds(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTrace(ctx, newTrace("t1", "acme", "support", "prod", base)))

	// A trace one nanosecond before from is outside the window.
	summary, _, err := s.Aggregate(ctx, stats.Filter{TenantID: "acme", From: base.Add(time.Nanosecond), To: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalTraces)

	summary, _, err = s.Aggregate(ctx, stats.Filter{TenantID: "acme", From: base.Add(-time.Hour), To: base.Add(-time.Nanosecond)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalTraces)

	summary, _, err = s.Aggregate(ctx, stats.Filter{TenantID: "acme", From: base.Add(-time.Nanosecond), To: base.Add(999 * time.Nanosecond)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalTraces)
}
