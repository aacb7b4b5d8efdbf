package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/ledger"
)

const traceColumns = `id, tenant_id, intent_name, use_case_id, risk_level, data_sensitivity,
	environment, extra, created_at, ended_at, status, result_summary`

func (s *Store) InsertTrace(ctx context.Context, t ledger.Trace) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO traces (`+traceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL)`,
		t.ID, t.TenantID, t.IntentName, t.UseCaseID, t.RiskLevel, t.DataSensitivity,
		t.Environment, nullString(t.Extra.String()), formatTime(t.CreatedAt), string(t.Status),
	)
	return wrap("insert_trace", err)
}

func (s *Store) AppendEvent(ctx context.Context, e ledger.Event) error {
	op := "append_" + string(e.Kind())
	var err error

	switch ev := e.(type) {
	case *ledger.ModelCallEvent:
		_, err = s.db.ExecContext(ctx, `INSERT INTO model_calls
			(id, trace_id, provider, model, prompt, response, input_tokens, output_tokens, latency_ms, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.TraceID, nullString(ev.Provider), ev.Model, nullString(ev.Prompt), nullString(ev.Response),
			nullInt(ev.InputTokens), nullInt(ev.OutputTokens), nullInt(ev.LatencyMs),
			nullString(ev.Metadata.String()), formatTime(ev.CreatedAt),
		)
	case *ledger.AgentCallEvent:
		_, err = s.db.ExecContext(ctx, `INSERT INTO agent_calls
			(id, trace_id, agent_id, action, request, response, status, latency_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.TraceID, ev.AgentID, nullString(ev.Action), nullString(ev.Request.String()),
			nullString(ev.Response.String()), nullString(ev.Status), nullInt(ev.LatencyMs), formatTime(ev.CreatedAt),
		)
	case *ledger.AuditEvent:
		_, err = s.db.ExecContext(ctx, `INSERT INTO audit_events
			(id, trace_id, event_type, actor, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.TraceID, ev.EventType, nullString(ev.Actor), nullString(ev.Payload.String()), formatTime(ev.CreatedAt),
		)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("unsupported event type %T", e), nil)
	}

	if isForeignKeyViolation(err) {
		return apperrors.NewNotFoundError("trace", e.Meta().TraceID)
	}
	return wrap(op, err)
}

func (s *Store) UpdateTraceEnd(ctx context.Context, traceID string, status ledger.Status, summary string, endedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE traces
		SET status = ?, ended_at = ?, result_summary = ?
		WHERE id = ? AND status = 'running'`,
		string(status), formatTime(endedAt), nullString(summary), traceID,
	)
	if err != nil {
		return false, wrap("update_trace_end", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("update_trace_end", err)
	}
	return n == 1, nil
}

func (s *Store) GetTrace(ctx context.Context, traceID string) (ledger.Trace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+traceColumns+` FROM traces WHERE id = ?`, traceID)
	t, err := scanTrace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Trace{}, apperrors.NewNotFoundError("trace", traceID)
	}
	return t, wrap("get_trace", err)
}

func (s *Store) ListStaleTraces(ctx context.Context, cutoff time.Time, limit int) ([]ledger.Trace, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+traceColumns+`
		FROM traces
		WHERE status = 'running' AND created_at < ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, formatTime(cutoff), limit)
	if err != nil {
		return nil, wrap("list_stale_traces", err)
	}
	defer rows.Close()

	var out []ledger.Trace
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, wrap("list_stale_traces", err)
		}
		out = append(out, t)
	}
	return out, wrap("list_stale_traces", rows.Err())
}

func scanTrace(row rowScanner) (ledger.Trace, error) {
	var (
		t                     ledger.Trace
		extra, summary, ended sql.NullString
		createdAt, status     string
	)
	if err := row.Scan(
		&t.ID, &t.TenantID, &t.IntentName, &t.UseCaseID, &t.RiskLevel, &t.DataSensitivity,
		&t.Environment, &extra, &createdAt, &ended, &status, &summary,
	); err != nil {
		return ledger.Trace{}, err
	}

	t.Status = ledger.Status(status)
	t.ResultSummary = summary.String

	var err error
	if t.Extra, err = ledger.RawValue([]byte(extra.String)); err != nil {
		return ledger.Trace{}, fmt.Errorf("trace %s extra: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return ledger.Trace{}, fmt.Errorf("trace %s created_at: %w", t.ID, err)
	}
	if ended.Valid {
		endedAt, err := parseTime(ended.String)
		if err != nil {
			return ledger.Trace{}, fmt.Errorf("trace %s ended_at: %w", t.ID, err)
		}
		t.EndedAt = &endedAt
	}
	return t, nil
}
