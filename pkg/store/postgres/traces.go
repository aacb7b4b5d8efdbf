package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/ledger"

	"github.com/jackc/pgx/v5"
)

const traceColumns = `id, tenant_id, intent_name, use_case_id, risk_level, data_sensitivity,
	environment, extra, created_at, ended_at, status, result_summary`

func (s *Store) InsertTrace(ctx context.Context, t ledger.Trace) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO traces (`+traceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, NULL)`,
		t.ID, t.TenantID, t.IntentName, t.UseCaseID, t.RiskLevel, t.DataSensitivity,
		t.Environment, optional(t.Extra.String()), t.CreatedAt, string(t.Status),
	)
	return wrap("insert_trace", err)
}

func (s *Store) AppendEvent(ctx context.Context, e ledger.Event) error {
	op := "append_" + string(e.Kind())
	var err error

	switch ev := e.(type) {
	case *ledger.ModelCallEvent:
		_, err = s.pool.Exec(ctx, `INSERT INTO model_calls
			(id, trace_id, provider, model, prompt, response, input_tokens, output_tokens, latency_ms, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			ev.ID, ev.TraceID, optional(ev.Provider), ev.Model, optional(ev.Prompt), optional(ev.Response),
			ev.InputTokens, ev.OutputTokens, ev.LatencyMs, optional(ev.Metadata.String()), ev.CreatedAt,
		)
	case *ledger.AgentCallEvent:
		_, err = s.pool.Exec(ctx, `INSERT INTO agent_calls
			(id, trace_id, agent_id, action, request, response, status, latency_ms, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ev.ID, ev.TraceID, ev.AgentID, optional(ev.Action), optional(ev.Request.String()),
			optional(ev.Response.String()), optional(ev.Status), ev.LatencyMs, ev.CreatedAt,
		)
	case *ledger.AuditEvent:
		_, err = s.pool.Exec(ctx, `INSERT INTO audit_events
			(id, trace_id, event_type, actor, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ev.ID, ev.TraceID, ev.EventType, optional(ev.Actor), optional(ev.Payload.String()), ev.CreatedAt,
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
	tag, err := s.pool.Exec(ctx, `UPDATE traces
		SET status = $1, ended_at = $2, result_summary = $3
		WHERE id = $4 AND status = 'running'`,
		string(status), endedAt, optional(summary), traceID,
	)
	if err != nil {
		return false, wrap("update_trace_end", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) GetTrace(ctx context.Context, traceID string) (ledger.Trace, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+traceColumns+` FROM traces WHERE id = $1`, traceID)
	t, err := scanTrace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Trace{}, apperrors.NewNotFoundError("trace", traceID)
	}
	return t, wrap("get_trace", err)
}

func (s *Store) ListStaleTraces(ctx context.Context, cutoff time.Time, limit int) ([]ledger.Trace, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `SELECT `+traceColumns+`
		FROM traces
		WHERE status = 'running' AND created_at < $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`, cutoff, lim)
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

func scanTrace(row pgx.Row) (ledger.Trace, error) {
	var (
		t              ledger.Trace
		extra, summary *string
		status         string
	)
	if err := row.Scan(
		&t.ID, &t.TenantID, &t.IntentName, &t.UseCaseID, &t.RiskLevel, &t.DataSensitivity,
		&t.Environment, &extra, &t.CreatedAt, &t.EndedAt, &status, &summary,
	); err != nil {
		return ledger.Trace{}, err
	}

	t.Status = ledger.Status(status)
	t.ResultSummary = deref(summary)
	t.CreatedAt = utc(t.CreatedAt)
	if t.EndedAt != nil {
		ended := utc(*t.EndedAt)
		t.EndedAt = &ended
	}

	var err error
	if t.Extra, err = ledger.RawValue([]byte(deref(extra))); err != nil {
		return ledger.Trace{}, fmt.Errorf("trace %s extra: %w", t.ID, err)
	}
	return t, nil
}
