package handlers

import (
	"net/http"

	"mercator-hq/arbiter/pkg/api"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/security/auth"
	"mercator-hq/arbiter/pkg/telemetry/logging"

	"github.com/go-chi/chi/v5"
)

// ImportRequest is the body of PUT /v1/tenants/{tenantId}/policies.
type ImportRequest struct {
	Version  string        `json:"version,omitempty"`
	Policies []policy.Rule `json:"policies"`
}

// ImportResponse reports a completed import.
type ImportResponse struct {
	TenantID string `json:"tenantId"`
	Version  string `json:"version,omitempty"`
	Imported int    `json:"imported"`
}

// PolicyList is the body of GET /v1/tenants/{tenantId}/policies.
type PolicyList struct {
	TenantID string          `json:"tenantId"`
	Policies []policy.Policy `json:"policies"`
}

// Decide handles POST /v1/decisions. Only validation failures produce an
// error response; evaluation failures already fell back to allow.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var input policy.DecisionInput
	if err := api.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CheckTenant(r.Context(), input.TenantID); err != nil {
		h.fail(w, r, err)
		return
	}

	decision, err := h.decider.Decide(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, decision)
}

// ImportPolicies handles PUT /v1/tenants/{tenantId}/policies. The tenant's
// set is replaced atomically; an empty list clears it.
func (h *Handler) ImportPolicies(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	ctx := logging.WithTenantID(r.Context(), tenantID)
	if err := auth.CheckTenant(ctx, tenantID); err != nil {
		h.fail(w, r, err)
		return
	}

	var req ImportRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	n, err := h.policies.Import(ctx, tenantID, req.Version, req.Policies)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, ImportResponse{TenantID: tenantID, Version: req.Version, Imported: n})
}

// ListPolicies handles GET /v1/tenants/{tenantId}/policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if err := auth.CheckTenant(r.Context(), tenantID); err != nil {
		h.fail(w, r, err)
		return
	}

	policies, err := h.policies.List(logging.WithTenantID(r.Context(), tenantID), tenantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if policies == nil {
		policies = []policy.Policy{}
	}
	api.WriteJSON(w, http.StatusOK, PolicyList{TenantID: tenantID, Policies: policies})
}
