package stats

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

// DefaultWindow is the look-back used when a query has no from bound.
const DefaultWindow = 7 * 24 * time.Hour

// Filter selects the traces an overview counts. From and To are inclusive
// bounds on the trace creation time.
type Filter struct {
	TenantID    string
	Environment string
	From        time.Time
	To          time.Time
}

// Normalized returns f with its bounds moved inward to whole microseconds,
// the precision at which traces are stored. A From with a sub-microsecond
// remainder rounds up and To truncates, so no stored instant outside the
// original window falls inside the normalized one.
func (f Filter) Normalized() Filter {
	if from := f.From.Truncate(time.Microsecond); from.Before(f.From) {
		f.From = from.Add(time.Microsecond)
	}
	f.To = f.To.Truncate(time.Microsecond)
	return f
}

// Summary holds distinct counts over the filtered traces.
type Summary struct {
	TotalTraces     int64 `json:"totalTraces"`
	TotalModelCalls int64 `json:"totalModelCalls"`
	TotalAgentCalls int64 `json:"totalAgentCalls"`
}

// UseCaseStats holds the counts of one use case.
type UseCaseStats struct {
	UseCaseID   string    `json:"useCaseId"`
	Traces      int64     `json:"traces"`
	ModelCalls  int64     `json:"modelCalls"`
	AgentCalls  int64     `json:"agentCalls"`
	LastTraceAt time.Time `json:"lastTraceAt"`
}

// Overview is the result of an overview query.
type Overview struct {
	TenantID    string         `json:"tenantId"`
	Environment string         `json:"environment,omitempty"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Summary     Summary        `json:"summary"`
	ByUseCase   []UseCaseStats `json:"byUseCase"`
}

// Query are the caller's overview parameters. Nil bounds take defaults.
type Query struct {
	TenantID    string
	Environment string
	From        *time.Time
	To          *time.Time
}

// Store is the read path the aggregator needs.
type Store interface {
	Aggregate(ctx context.Context, f Filter) (Summary, []UseCaseStats, error)
}

// Recorder receives stats query metrics.
type Recorder interface {
	RecordStatsQuery(result string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordStatsQuery(string, time.Duration) {}

// Aggregator computes read-only overviews from the ledger.
type Aggregator struct {
	store    Store
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	window   time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithDefaultWindow sets the look-back used when From is nil.
func WithDefaultWindow(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.window = d
		}
	}
}

// NewAggregator creates an aggregator reading from store.
func NewAggregator(store Store, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		store:    store,
		logger:   logger.With("component", "stats"),
		recorder: nopRecorder{},
		now:      time.Now,
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Overview counts the tenant's traces created in the window, and their
// model and agent calls, in total and per use case. Use cases are ordered
// by trace count descending, then id.
func (a *Aggregator) Overview(ctx context.Context, q Query) (Overview, error) {
	f, err := a.resolve(q)
	if err != nil {
		return Overview{}, err
	}
	ctx = logging.WithTenantID(ctx, f.TenantID)

	a.logger.DebugContext(ctx, "stats overview query",
		"environment", f.Environment,
		"from", f.From,
		"to", f.To,
	)

	start := time.Now()
	summary, byUseCase, err := a.store.Aggregate(ctx, f)
	if err != nil {
		a.recorder.RecordStatsQuery("error", time.Since(start))
		a.logger.ErrorContext(ctx, "stats overview failed", "error", err)
		return Overview{}, err
	}
	a.recorder.RecordStatsQuery("ok", time.Since(start))

	SortUseCases(byUseCase)
	if byUseCase == nil {
		byUseCase = []UseCaseStats{}
	}

	return Overview{
		TenantID:    f.TenantID,
		Environment: f.Environment,
		From:        f.From,
		To:          f.To,
		Summary:     summary,
		ByUseCase:   byUseCase,
	}, nil
}

func (a *Aggregator) resolve(q Query) (Filter, error) {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(q.TenantID) == "" {
		verr.Add("tenantId", "is required")
	}

	f := Filter{TenantID: q.TenantID, Environment: q.Environment}
	if q.To != nil {
		f.To = q.To.UTC()
	} else {
		f.To = a.now().UTC()
	}
	if q.From != nil {
		f.From = q.From.UTC()
	} else {
		f.From = f.To.Add(-a.window)
	}
	if f.From.After(f.To) {
		verr.Add("from", "must not be after to")
	}
	return f.Normalized(), verr.OrNil()
}

// SortUseCases orders use cases by trace count descending, then id.
func SortUseCases(rows []UseCaseStats) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Traces != rows[j].Traces {
			return rows[i].Traces > rows[j].Traces
		}
		return rows[i].UseCaseID < rows[j].UseCaseID
	})
}
