package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

type fakeStore struct {
	got       Filter
	summary   Summary
	byUseCase []UseCaseStats
	err       error
}

func (s *fakeStore) Aggregate(ctx context.Context, f Filter) (Summary, []UseCaseStats, error) {
	s.got = f
	return s.summary, s.byUseCase, s.err
}

var now = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestAggregator_OverviewDefaults(t *testing.T) {
	store := &fakeStore{}
	a := NewAggregator(store, logging.Discard(), WithClock(clock))

	ov, err := a.Overview(context.Background(), Query{TenantID: "t1"})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if !store.got.To.Equal(now) || !store.got.From.Equal(now.Add(-7*24*time.Hour)) {
		t.Errorf("window = [%v, %v], want last 7 days", store.got.From, store.got.To)
	}
	if ov.ByUseCase == nil {
		t.Error("ByUseCase should be an empty slice, not nil")
	}
}

func TestAggregator_OverviewWindow(t *testing.T) {
	to := now.Add(-24 * time.Hour)
	from := now.Add(-48 * time.Hour)

	tests := []struct {
		name     string
		query    Query
		window   time.Duration
		wantFrom time.Time
		wantTo   time.Time
	}{
		{name: "explicit bounds", query: Query{TenantID: "t1", From: &from, To: &to}, wantFrom: from, wantTo: to},
		{name: "only to", query: Query{TenantID: "t1", To: &to}, wantFrom: to.Add(-DefaultWindow), wantTo: to},
		{name: "only from", query: Query{TenantID: "t1", From: &from}, wantFrom: from, wantTo: now},
		{name: "configured window", query: Query{TenantID: "t1"}, window: time.Hour, wantFrom: now.Add(-time.Hour), wantTo: now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			a := NewAggregator(store, logging.Discard(), WithClock(clock), WithDefaultWindow(tt.window))
			if _, err := a.Overview(context.Background(), tt.query); err != nil {
				t.Fatalf("Overview() error = %v", err)
			}
			if !store.got.From.Equal(tt.wantFrom) || !store.got.To.Equal(tt.wantTo) {
				t.Errorf("window = [%v, %v], want [%v, %v]", store.got.From, store.got.To, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestAggregator_OverviewValidation(t *testing.T) {
	a := NewAggregator(&fakeStore{}, logging.Discard(), WithClock(clock))
	later := now.Add(time.Hour)

	_, err := a.Overview(context.Background(), Query{From: &later})
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Overview() error = %v, want ValidationError", err)
	}
	if len(verr.Fields) != 2 || verr.Fields[0].Field != "tenantId" || verr.Fields[1].Field != "from" {
		t.Errorf("fields = %+v", verr.Fields)
	}
}

func TestAggregator_OverviewOrdersUseCases(t *testing.T) {
	store := &fakeStore{
		summary: Summary{TotalTraces: 6, TotalModelCalls: 4, TotalAgentCalls: 1},
		byUseCase: []UseCaseStats{
			{UseCaseID: "support", Traces: 1},
			{UseCaseID: "billing", Traces: 3},
			{UseCaseID: "analytics", Traces: 1},
			{UseCaseID: "search", Traces: 1},
		},
	}
	a := NewAggregator(store, logging.Discard(), WithClock(clock))

	ov, err := a.Overview(context.Background(), Query{TenantID: "t1", Environment: "prd"})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	want := []string{"billing", "analytics", "search", "support"}
	for i, row := range ov.ByUseCase {
		if row.UseCaseID != want[i] {
			t.Errorf("byUseCase[%d] = %s, want %s", i, row.UseCaseID, want[i])
		}
	}
	if store.got.Environment != "prd" {
		t.Errorf("environment filter = %q, want prd", store.got.Environment)
	}
}

func TestAggregator_OverviewPropagatesStoreError(t *testing.T) {
	a := NewAggregator(&fakeStore{err: apperrors.NewStoreError("postgres", "aggregate", errors.New("connection reset"))}, logging.Discard())

	_, err := a.Overview(context.Background(), Query{TenantID: "t1"})
	if apperrors.KindOf(err) != apperrors.KindStore {
		t.Errorf("Overview() error = %v, want store error", err)
	}
}

func TestFilter_Normalized(t *testing.T) {
	at := time.Date(2026, 3, 8, 12, 0, 0, 1000, time.UTC)

	tests := []struct {
		name     string
		in       Filter
		wantFrom time.Time
		wantTo   time.Time
	}{
		{name: "aligned", in: Filter{From: at, To: at}, wantFrom: at, wantTo: at},
		{name: "from rounds up", in: Filter{From: at.Add(1), To: at.Add(time.Second)}, wantFrom: at.Add(time.Microsecond), wantTo: at.Add(time.Second)},
		{name: "to truncates", in: Filter{From: at, To: at.Add(999)}, wantFrom: at, wantTo: at},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalized()
			if !got.From.Equal(tt.wantFrom) || !got.To.Equal(tt.wantTo) {
				t.Errorf("Normalized() = [%v, %v], want [%v, %v]", got.From, got.To, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestAggregator_OverviewNormalizesBounds(t *testing.T) {
	store := &fakeStore{}
	a := NewAggregator(store, logging.Discard(), WithClock(clock))
	from := now.Add(-time.Hour).Add(1)
	to := now.Add(1)

	if _, err := a.Overview(context.Background(), Query{TenantID: "t1", From: &from, To: &to}); err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if want := now.Add(-time.Hour).Add(time.Microsecond); !store.got.From.Equal(want) {
		t.Errorf("from = %v, want %v", store.got.From, want)
	}
	if !store.got.To.Equal(now) {
		t.Errorf("to = %v, want %v", store.got.To, now)
	}
}
