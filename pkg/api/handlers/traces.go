package handlers

import (
	"context"
	"net/http"

	"mercator-hq/arbiter/pkg/api"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/security/auth"
	"mercator-hq/arbiter/pkg/telemetry/logging"

	"github.com/go-chi/chi/v5"
)

// StartTraceResponse is returned when a trace is started.
type StartTraceResponse struct {
	TraceID string `json:"traceId"`
	Status  string `json:"status"`
}

// EventResponse is returned when an event is appended.
type EventResponse struct {
	ID      string `json:"id"`
	TraceID string `json:"traceId"`
}

// EndTraceRequest is the body of POST /v1/traces/{traceId}/end.
type EndTraceRequest struct {
	Status        ledger.Status `json:"status"`
	ResultSummary string        `json:"resultSummary,omitempty"`
}

// StartTrace handles POST /v1/traces.
func (h *Handler) StartTrace(w http.ResponseWriter, r *http.Request) {
	var meta ledger.TraceMeta
	if err := api.DecodeJSON(r, &meta); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CheckTenant(r.Context(), meta.TenantID); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.ledger.Start(r.Context(), meta)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/traces/"+id)
	api.WriteJSON(w, http.StatusCreated, StartTraceResponse{TraceID: id, Status: string(ledger.StatusRunning)})
}

// GetTrace handles GET /v1/traces/{traceId}.
func (h *Handler) GetTrace(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceId")

	rec, err := h.ledger.Get(logging.WithTraceID(r.Context(), traceID), traceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CheckTenant(r.Context(), rec.Trace.TenantID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, rec)
}

// LogModelCall handles POST /v1/traces/{traceId}/model-calls.
func (h *Handler) LogModelCall(w http.ResponseWriter, r *http.Request) {
	var log ledger.ModelCallLog
	appendEvent(h, w, r, &log, func(traceID string) (string, error) {
		return h.ledger.LogModelCall(r.Context(), traceID, log)
	})
}

// LogAgentCall handles POST /v1/traces/{traceId}/agent-calls.
func (h *Handler) LogAgentCall(w http.ResponseWriter, r *http.Request) {
	var log ledger.AgentCallLog
	appendEvent(h, w, r, &log, func(traceID string) (string, error) {
		return h.ledger.LogAgentCall(r.Context(), traceID, log)
	})
}

// LogAuditEvent handles POST /v1/traces/{traceId}/audit-events.
func (h *Handler) LogAuditEvent(w http.ResponseWriter, r *http.Request) {
	var log ledger.AuditEventLog
	appendEvent(h, w, r, &log, func(traceID string) (string, error) {
		return h.ledger.LogAuditEvent(r.Context(), traceID, log)
	})
}

// appendEvent decodes the body into dst and runs appendFn for the trace in
// the URL.
func appendEvent(h *Handler, w http.ResponseWriter, r *http.Request, dst any, appendFn func(traceID string) (string, error)) {
	traceID := chi.URLParam(r, "traceId")
	if err := api.DecodeJSON(r, dst); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.checkTraceTenant(r.Context(), traceID); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := appendFn(traceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, EventResponse{ID: id, TraceID: traceID})
}

// EndTrace handles POST /v1/traces/{traceId}/end. Ending a trace that is
// no longer running answers 409 and leaves it unchanged.
func (h *Handler) EndTrace(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceId")

	var req EndTraceRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.checkTraceTenant(r.Context(), traceID); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.ledger.End(r.Context(), traceID, req.Status, req.ResultSummary); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkTraceTenant loads the trace's tenant for keys limited to a tenant
// list. Unrestricted keys write without the extra read.
func (h *Handler) checkTraceTenant(ctx context.Context, traceID string) error {
	key, ok := auth.KeyFromContext(ctx)
	if !ok || !key.Restricted() {
		return nil
	}
	rec, err := h.ledger.Get(ctx, traceID)
	if err != nil {
		return err
	}
	return auth.CheckTenant(ctx, rec.Trace.TenantID)
}
