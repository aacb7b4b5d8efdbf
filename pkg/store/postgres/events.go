package postgres

import (
	"context"
	"fmt"

	"mercator-hq/arbiter/pkg/ledger"
)

// ListEvents returns the trace's events from all three ledger tables in
// created_at, id order.
func (s *Store) ListEvents(ctx context.Context, traceID string) ([]ledger.Event, error) {
	var events []ledger.Event
	for _, list := range []func(context.Context, string) ([]ledger.Event, error){
		s.listModelCalls,
		s.listAgentCalls,
		s.listAuditEvents,
	} {
		got, err := list(ctx, traceID)
		if err != nil {
			return nil, wrap("list_events", err)
		}
		events = append(events, got...)
	}
	ledger.SortEvents(events)
	return events, nil
}

func (s *Store) listModelCalls(ctx context.Context, traceID string) ([]ledger.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, trace_id, provider, model, prompt, response,
		input_tokens, output_tokens, latency_ms, metadata, created_at
		FROM model_calls WHERE trace_id = $1 ORDER BY created_at, id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			e                                ledger.ModelCallEvent
			provider, prompt, response, meta *string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &provider, &e.Model, &prompt, &response,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Provider, e.Prompt, e.Response = deref(provider), deref(prompt), deref(response)
		e.CreatedAt = utc(e.CreatedAt)
		if e.Metadata, err = ledger.RawValue([]byte(deref(meta))); err != nil {
			return nil, fmt.Errorf("model call %s metadata: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) listAgentCalls(ctx context.Context, traceID string) ([]ledger.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, trace_id, agent_id, action, request, response,
		status, latency_ms, created_at
		FROM agent_calls WHERE trace_id = $1 ORDER BY created_at, id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			e                                 ledger.AgentCallEvent
			action, request, response, status *string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &e.AgentID, &action, &request, &response,
			&status, &e.LatencyMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action, e.Status = deref(action), deref(status)
		e.CreatedAt = utc(e.CreatedAt)
		if e.Request, err = ledger.RawValue([]byte(deref(request))); err != nil {
			return nil, fmt.Errorf("agent call %s request: %w", e.ID, err)
		}
		if e.Response, err = ledger.RawValue([]byte(deref(response))); err != nil {
			return nil, fmt.Errorf("agent call %s response: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) listAuditEvents(ctx context.Context, traceID string) ([]ledger.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, trace_id, event_type, actor, payload, created_at
		FROM audit_events WHERE trace_id = $1 ORDER BY created_at, id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			e              ledger.AuditEvent
			actor, payload *string
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &e.EventType, &actor, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Actor = deref(actor)
		e.CreatedAt = utc(e.CreatedAt)
		if e.Payload, err = ledger.RawValue([]byte(deref(payload))); err != nil {
			return nil, fmt.Errorf("audit event %s payload: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
