// Package memory provides an in-process Store for tests and single-node
// evaluation. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/stats"
)

const backend = "memory"

// Store keeps all rows in maps guarded by one lock, which makes
// ReplacePolicies atomic with respect to readers.
type Store struct {
	mu       sync.RWMutex
	policies map[string][]policy.Policy
	traces   map[string]ledger.Trace
	events   map[string][]ledger.Event
	closed   bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		policies: make(map[string][]policy.Policy),
		traces:   make(map[string]ledger.Trace),
		events:   make(map[string][]ledger.Event),
	}
}

func (s *Store) Backend() string { return backend }

func (s *Store) Migrate(ctx context.Context) (int, error) { return 1, nil }

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen("ping")
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkOpen(op string) error {
	if s.closed {
		return apperrors.NewStoreError(backend, op, errClosed)
	}
	return nil
}

func (s *Store) ListPoliciesByTenant(ctx context.Context, tenantID string) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list_policies"); err != nil {
		return nil, err
	}
	out := append([]policy.Policy(nil), s.policies[tenantID]...)
	policy.SortPolicies(out)
	return out, nil
}

func (s *Store) ReplacePolicies(ctx context.Context, tenantID string, policies []policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("replace_policies"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError(backend, "replace_policies", err)
	}
	if len(policies) == 0 {
		delete(s.policies, tenantID)
		return nil
	}
	s.policies[tenantID] = append([]policy.Policy(nil), policies...)
	return nil
}

func (s *Store) InsertTrace(ctx context.Context, t ledger.Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("insert_trace"); err != nil {
		return err
	}
	if _, ok := s.traces[t.ID]; ok {
		return apperrors.NewStoreError(backend, "insert_trace", errDuplicateID)
	}
	s.traces[t.ID] = t
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, e ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := "append_" + string(e.Kind())
	if err := s.checkOpen(op); err != nil {
		return err
	}
	meta := e.Meta()
	if _, ok := s.traces[meta.TraceID]; !ok {
		return apperrors.NewNotFoundError("trace", meta.TraceID)
	}
	s.events[meta.TraceID] = append(s.events[meta.TraceID], e)
	return nil
}

func (s *Store) UpdateTraceEnd(ctx context.Context, traceID string, status ledger.Status, summary string, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("update_trace_end"); err != nil {
		return false, err
	}
	t, ok := s.traces[traceID]
	if !ok || t.Status != ledger.StatusRunning {
		return false, nil
	}
	t.Status = status
	t.ResultSummary = summary
	t.EndedAt = &endedAt
	s.traces[traceID] = t
	return true, nil
}

func (s *Store) GetTrace(ctx context.Context, traceID string) (ledger.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get_trace"); err != nil {
		return ledger.Trace{}, err
	}
	t, ok := s.traces[traceID]
	if !ok {
		return ledger.Trace{}, apperrors.NewNotFoundError("trace", traceID)
	}
	return t, nil
}

func (s *Store) ListEvents(ctx context.Context, traceID string) ([]ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list_events"); err != nil {
		return nil, err
	}
	out := append([]ledger.Event(nil), s.events[traceID]...)
	ledger.SortEvents(out)
	return out, nil
}

func (s *Store) ListStaleTraces(ctx context.Context, cutoff time.Time, limit int) ([]ledger.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list_stale_traces"); err != nil {
		return nil, err
	}
	var out []ledger.Trace
	for _, t := range s.traces {
		if t.Status == ledger.StatusRunning && t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Aggregate(ctx context.Context, f stats.Filter) (stats.Summary, []stats.UseCaseStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("aggregate"); err != nil {
		return stats.Summary{}, nil, err
	}

	// Compare at the microsecond precision the SQL backends store.
	f = f.Normalized()
	groups := make(map[string]*stats.UseCaseStats)
	var summary stats.Summary
	for _, t := range s.traces {
		created := t.CreatedAt.Truncate(time.Microsecond)
		if t.TenantID != f.TenantID || created.Before(f.From) || created.After(f.To) {
			continue
		}
		if f.Environment != "" && t.Environment != f.Environment {
			continue
		}

		g, ok := groups[t.UseCaseID]
		if !ok {
			g = &stats.UseCaseStats{UseCaseID: t.UseCaseID}
			groups[t.UseCaseID] = g
		}
		g.Traces++
		if t.CreatedAt.After(g.LastTraceAt) {
			g.LastTraceAt = t.CreatedAt
		}
		for _, e := range s.events[t.ID] {
			switch e.Kind() {
			case ledger.KindModelCall:
				g.ModelCalls++
			case ledger.KindAgentCall:
				g.AgentCalls++
			}
		}
	}

	rows := make([]stats.UseCaseStats, 0, len(groups))
	for _, g := range groups {
		summary.TotalTraces += g.Traces
		summary.TotalModelCalls += g.ModelCalls
		summary.TotalAgentCalls += g.AgentCalls
		rows = append(rows, *g)
	}
	stats.SortUseCases(rows)
	return summary, rows, nil
}
