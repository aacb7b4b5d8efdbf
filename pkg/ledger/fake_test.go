package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
)

type fakeStore struct {
	mu        sync.Mutex
	traces    map[string]Trace
	events    map[string][]Event
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{traces: make(map[string]Trace), events: make(map[string][]Event)}
}

func (s *fakeStore) InsertTrace(ctx context.Context, t Trace) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces[t.ID] = t
	return nil
}

func (s *fakeStore) AppendEvent(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	traceID := e.Meta().TraceID
	if _, ok := s.traces[traceID]; !ok {
		return apperrors.NewNotFoundError("trace", traceID)
	}
	s.events[traceID] = append(s.events[traceID], e)
	return nil
}

func (s *fakeStore) UpdateTraceEnd(ctx context.Context, traceID string, status Status, summary string, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.traces[traceID]
	if !ok || t.Status != StatusRunning {
		return false, nil
	}
	t.Status, t.ResultSummary, t.EndedAt = status, summary, &endedAt
	s.traces[traceID] = t
	return true, nil
}

func (s *fakeStore) GetTrace(ctx context.Context, traceID string) (Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.traces[traceID]
	if !ok {
		return Trace{}, apperrors.NewNotFoundError("trace", traceID)
	}
	return t, nil
}

func (s *fakeStore) ListEvents(ctx context.Context, traceID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events[traceID]...), nil
}

func (s *fakeStore) ListStaleTraces(ctx context.Context, cutoff time.Time, limit int) ([]Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Trace
	for _, t := range s.traces {
		if t.Status == StatusRunning && t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	started     int
	ended       map[string]int
	events      map[string]int
	truncations map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{ended: map[string]int{}, events: map[string]int{}, truncations: map[string]int{}}
}

func (r *fakeRecorder) RecordTraceStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeRecorder) RecordTraceEnded(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended[status]++
}

func (r *fakeRecorder) RecordLedgerEvent(kind, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[kind+"/"+result]++
}

func (r *fakeRecorder) RecordTruncation(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.truncations[field]++
}

// stepClock advances by one millisecond on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func validMeta() TraceMeta {
	return TraceMeta{
		TenantID:        "t1",
		IntentName:      "rotate-credentials",
		UseCaseID:       "ops-automation",
		RiskLevel:       "high",
		DataSensitivity: "confidential",
		Environment:     "prd",
	}
}
