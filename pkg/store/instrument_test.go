package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/stats"
	"mercator-hq/arbiter/pkg/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	backend, op string
	err         error
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *fakeRecorder) ObserveStoreOperation(backend, op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{backend, op, err})
}

// slowStore blocks Aggregate until the context ends and returns the bare
// context error, as a driver would.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Aggregate(ctx context.Context, _ stats.Filter) (stats.Summary, []stats.UseCaseStats, error) {
	<-ctx.Done()
	return stats.Summary{}, nil, ctx.Err()
}

func TestInstrument_TimeoutBecomesRetryableStoreError(t *testing.T) {
	rec := &fakeRecorder{}
	s := Instrument(slowStore{memory.New()}, 20*time.Millisecond, nil, rec)

	_, _, err := s.Aggregate(context.Background(), stats.Filter{TenantID: "acme"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStore, apperrors.KindOf(err))
	assert.True(t, apperrors.IsRetryable(err))

	require.Len(t, rec.obs, 1)
	assert.Equal(t, "memory", rec.obs[0].backend)
	assert.Equal(t, "aggregate", rec.obs[0].op)
}

func TestInstrument_PassesThroughResults(t *testing.T) {
	rec := &fakeRecorder{}
	s := Instrument(memory.New(), time.Second, nil, rec)
	ctx := context.Background()

	tr := ledger.Trace{ID: "t1", TenantID: "acme", UseCaseID: "support", CreatedAt: time.Now().UTC(), Status: ledger.StatusRunning}
	require.NoError(t, s.InsertTrace(ctx, tr))

	got, err := s.GetTrace(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	_, err = s.GetTrace(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err), "not found must pass through unchanged, got %v", err)

	err = s.AppendEvent(ctx, &ledger.AuditEvent{EventMeta: ledger.EventMeta{ID: "e1", TraceID: "t1", CreatedAt: time.Now().UTC()}})
	require.NoError(t, err)

	var ops []string
	for _, o := range rec.obs {
		ops = append(ops, o.op)
	}
	assert.Equal(t, []string{"insert_trace", "get_trace", "get_trace", "append_audit_event"}, ops)
	assert.Equal(t, "memory", s.Backend())
}
