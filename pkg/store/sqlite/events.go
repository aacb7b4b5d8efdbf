package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"mercator-hq/arbiter/pkg/ledger"
)

// ListEvents returns the trace's events from all three ledger tables in
// created_at, id order.
func (s *Store) ListEvents(ctx context.Context, traceID string) ([]ledger.Event, error) {
	var events []ledger.Event

	modelCalls, err := s.listModelCalls(ctx, traceID)
	if err != nil {
		return nil, wrap("list_events", err)
	}
	events = append(events, modelCalls...)

	agentCalls, err := s.listAgentCalls(ctx, traceID)
	if err != nil {
		return nil, wrap("list_events", err)
	}
	events = append(events, agentCalls...)

	auditEvents, err := s.listAuditEvents(ctx, traceID)
	if err != nil {
		return nil, wrap("list_events", err)
	}
	events = append(events, auditEvents...)

	ledger.SortEvents(events)
	return events, nil
}

func (s *Store) listModelCalls(ctx context.Context, traceID string) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, trace_id, provider, model, prompt, response,
		input_tokens, output_tokens, latency_ms, metadata, created_at
		FROM model_calls WHERE trace_id = ? ORDER BY created_at, id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			e                                ledger.ModelCallEvent
			provider, prompt, response, meta sql.NullString
			inTok, outTok, latency           sql.NullInt64
			createdAt                        string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &provider, &e.Model, &prompt, &response,
			&inTok, &outTok, &latency, &meta, &createdAt); err != nil {
			return nil, err
		}
		e.Provider, e.Prompt, e.Response = provider.String, prompt.String, response.String
		e.InputTokens, e.OutputTokens, e.LatencyMs = intPtr(inTok), intPtr(outTok), intPtr(latency)
		if e.Metadata, err = ledger.RawValue([]byte(meta.String)); err != nil {
			return nil, fmt.Errorf("model call %s metadata: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) listAgentCalls(ctx context.Context, traceID string) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, trace_id, agent_id, action, request, response,
		status, latency_ms, created_at
		FROM agent_calls WHERE trace_id = ? ORDER BY created_at, id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			e                                 ledger.AgentCallEvent
			action, request, response, status sql.NullString
			latency                           sql.NullInt64
			createdAt                         string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &e.AgentID, &action, &request, &response,
			&status, &latency, &createdAt); err != nil {
			return nil, err
		}
		e.Action, e.Status, e.LatencyMs = action.String, status.String, intPtr(latency)
		if e.Request, err = ledger.RawValue([]byte(request.String)); err != nil {
			return nil, fmt.Errorf("agent call %s request: %w", e.ID, err)
		}
		if e.Response, err = ledger.RawValue([]byte(response.String)); err != nil {
			return nil, fmt.Errorf("agent call %s response: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) listAuditEvents(ctx context.Context, traceID string) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, trace_id, event_type, actor, payload, created_at
		FROM audit_events WHERE trace_id = ? ORDER BY created_at, id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			e              ledger.AuditEvent
			actor, payload sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &e.EventType, &actor, &payload, &createdAt); err != nil {
			return nil, err
		}
		e.Actor = actor.String
		if e.Payload, err = ledger.RawValue([]byte(payload.String)); err != nil {
			return nil, fmt.Errorf("audit event %s payload: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
