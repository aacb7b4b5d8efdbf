package handlers

import (
	"net/http"
	"time"

	"mercator-hq/arbiter/pkg/api"
	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/security/auth"
	"mercator-hq/arbiter/pkg/stats"
)

// StatsOverview handles GET /v1/stats/overview.
//
// Query parameters: tenantId (required), environment, from and to
// (RFC 3339). Missing bounds default to the configured window ending now.
func (h *Handler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	q, err := parseOverviewQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CheckTenant(r.Context(), q.TenantID); err != nil {
		h.fail(w, r, err)
		return
	}

	overview, err := h.stats.Overview(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, overview)
}

func parseOverviewQuery(r *http.Request) (stats.Query, error) {
	values := r.URL.Query()
	q := stats.Query{
		TenantID:    values.Get("tenantId"),
		Environment: values.Get("environment"),
	}

	verr := &apperrors.ValidationError{}
	q.From = parseTimeParam(verr, "from", values.Get("from"))
	q.To = parseTimeParam(verr, "to", values.Get("to"))
	return q, verr.OrNil()
}

func parseTimeParam(verr *apperrors.ValidationError, name, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		verr.Add(name, "must be an RFC 3339 timestamp")
		return nil
	}
	return &t
}
