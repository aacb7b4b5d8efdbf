package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"

	"github.com/google/uuid"
)

// DefaultMaxTextLength is the number of code points kept from a model
// call's prompt and response.
const DefaultMaxTextLength = 10000

// ErrTraceNotRunning is wrapped by the ConflictError End returns for a
// trace that has already ended.
var ErrTraceNotRunning = errors.New("trace is not running")

// Store is the persistence the ledger needs.
type Store interface {
	InsertTrace(ctx context.Context, t Trace) error

	// AppendEvent inserts one event row. A missing parent trace is
	// reported as a NotFoundError for the trace.
	AppendEvent(ctx context.Context, e Event) error

	// UpdateTraceEnd ends the trace only if it is still running and
	// reports whether a row was updated.
	UpdateTraceEnd(ctx context.Context, traceID string, status Status, summary string, endedAt time.Time) (bool, error)

	GetTrace(ctx context.Context, traceID string) (Trace, error)
	ListEvents(ctx context.Context, traceID string) ([]Event, error)

	// ListStaleTraces returns up to limit running traces created before
	// cutoff, oldest first.
	ListStaleTraces(ctx context.Context, cutoff time.Time, limit int) ([]Trace, error)
}

// Recorder receives ledger metrics.
type Recorder interface {
	RecordTraceStarted()
	RecordTraceEnded(status string)
	RecordLedgerEvent(kind, result string)
	RecordTruncation(field string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTraceStarted()              {}
func (nopRecorder) RecordTraceEnded(string)          {}
func (nopRecorder) RecordLedgerEvent(string, string) {}
func (nopRecorder) RecordTruncation(string)          {}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMaxTextLength sets the prompt and response truncation limit.
// Values below one keep the default.
func WithMaxTextLength(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxTextLength = n
		}
	}
}

// Manager drives the trace state machine and appends ledger events.
//
// Unlike policy decisions, every ledger failure is returned to the caller.
type Manager struct {
	store         Store
	logger        *slog.Logger
	recorder      Recorder
	now           func() time.Time
	newID         func() string
	maxTextLength int
}

// NewManager creates a manager writing to store.
func NewManager(store Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:         store,
		logger:        logger.With("component", "ledger"),
		recorder:      nopRecorder{},
		now:           time.Now,
		newID:         uuid.NewString,
		maxTextLength: DefaultMaxTextLength,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// timestamp returns now at the precision every backend can round-trip.
func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Start persists a new running trace and returns its id.
func (m *Manager) Start(ctx context.Context, meta TraceMeta) (string, error) {
	if err := meta.Validate(); err != nil {
		return "", err
	}

	t := Trace{
		ID:              m.newID(),
		TenantID:        meta.TenantID,
		IntentName:      meta.IntentName,
		UseCaseID:       meta.UseCaseID,
		RiskLevel:       meta.RiskLevel,
		DataSensitivity: meta.DataSensitivity,
		Environment:     meta.Environment,
		Extra:           meta.Extra,
		CreatedAt:       m.timestamp(),
		Status:          StatusRunning,
	}
	ctx = logging.WithTraceID(logging.WithTenantID(ctx, t.TenantID), t.ID)

	if err := m.store.InsertTrace(ctx, t); err != nil {
		m.logger.ErrorContext(ctx, "failed to start trace", "error", err)
		return "", err
	}

	m.recorder.RecordTraceStarted()
	m.logger.DebugContext(ctx, "trace started", "use_case_id", t.UseCaseID, "environment", t.Environment)
	return t.ID, nil
}

// LogModelCall appends a model call event and returns its id. Prompt and
// response have invalid UTF-8 replaced and are truncated to the configured
// length.
func (m *Manager) LogModelCall(ctx context.Context, traceID string, log ModelCallLog) (string, error) {
	if err := log.Validate(traceID); err != nil {
		return "", err
	}

	var truncated bool
	if log.Prompt, truncated = clampText(log.Prompt, m.maxTextLength); truncated {
		m.recorder.RecordTruncation("prompt")
	}
	if log.Response, truncated = clampText(log.Response, m.maxTextLength); truncated {
		m.recorder.RecordTruncation("response")
	}

	e := &ModelCallEvent{EventMeta: m.newEventMeta(traceID), ModelCallLog: log}
	return e.ID, m.append(ctx, e)
}

// LogAgentCall appends an agent call event and returns its id.
func (m *Manager) LogAgentCall(ctx context.Context, traceID string, log AgentCallLog) (string, error) {
	if err := log.Validate(traceID); err != nil {
		return "", err
	}
	e := &AgentCallEvent{EventMeta: m.newEventMeta(traceID), AgentCallLog: log}
	return e.ID, m.append(ctx, e)
}

// LogAuditEvent appends an audit event and returns its id.
func (m *Manager) LogAuditEvent(ctx context.Context, traceID string, log AuditEventLog) (string, error) {
	if err := log.Validate(traceID); err != nil {
		return "", err
	}
	e := &AuditEvent{EventMeta: m.newEventMeta(traceID), AuditEventLog: log}
	return e.ID, m.append(ctx, e)
}

func (m *Manager) newEventMeta(traceID string) EventMeta {
	return EventMeta{ID: m.newID(), TraceID: traceID, CreatedAt: m.timestamp()}
}

// append performs no existence check on the trace; the store's foreign key
// is the only guard.
func (m *Manager) append(ctx context.Context, e Event) error {
	meta := e.Meta()
	ctx = logging.WithTraceID(ctx, meta.TraceID)

	if err := m.store.AppendEvent(ctx, e); err != nil {
		m.recorder.RecordLedgerEvent(string(e.Kind()), "error")
		m.logger.WarnContext(ctx, "failed to append ledger event", "kind", e.Kind(), "error", err)
		return err
	}
	m.recorder.RecordLedgerEvent(string(e.Kind()), "ok")
	m.logger.DebugContext(ctx, "ledger event appended", "kind", e.Kind(), "event_id", meta.ID)
	return nil
}

// End moves a running trace to a terminal status. Ending a missing trace
// returns a NotFoundError; ending a trace that already ended returns a
// ConflictError wrapping ErrTraceNotRunning and leaves it unchanged.
func (m *Manager) End(ctx context.Context, traceID string, status Status, summary string) error {
	if err := validateEnd(traceID, status); err != nil {
		return err
	}
	ctx = logging.WithTraceID(ctx, traceID)

	updated, err := m.store.UpdateTraceEnd(ctx, traceID, status, summary, m.timestamp())
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to end trace", "status", status, "error", err)
		return err
	}
	if !updated {
		current, err := m.store.GetTrace(ctx, traceID)
		if err != nil {
			return err
		}
		m.logger.InfoContext(ctx, "rejected end of finished trace", "status", status, "current_status", current.Status)
		return apperrors.NewConflictError("trace", traceID, ErrTraceNotRunning)
	}

	m.recorder.RecordTraceEnded(string(status))
	m.logger.DebugContext(ctx, "trace ended", "status", status)
	return nil
}

// Get returns a trace with its events.
func (m *Manager) Get(ctx context.Context, traceID string) (TraceRecord, error) {
	if traceID == "" {
		return TraceRecord{}, apperrors.NewValidationError("traceId", "is required")
	}
	t, err := m.store.GetTrace(ctx, traceID)
	if err != nil {
		return TraceRecord{}, err
	}
	events, err := m.store.ListEvents(ctx, traceID)
	if err != nil {
		return TraceRecord{}, err
	}
	SortEvents(events)
	return TraceRecord{Trace: t, Events: events}, nil
}

// CancelStale ends up to limit traces that have been running longer than
// maxAge with status cancelled. Traces that end concurrently are skipped.
// It returns the number of traces cancelled.
func (m *Manager) CancelStale(ctx context.Context, maxAge time.Duration, limit int, summary string) (int, error) {
	cutoff := m.timestamp().Add(-maxAge)
	stale, err := m.store.ListStaleTraces(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, t := range stale {
		err := m.End(ctx, t.ID, StatusCancelled, summary)
		switch {
		case err == nil:
			cancelled++
		case errors.Is(err, ErrTraceNotRunning):
		default:
			return cancelled, err
		}
	}
	return cancelled, nil
}
