package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"mercator-hq/arbiter/pkg/api"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/stats"

	"github.com/go-chi/chi/v5"
)

// Decider answers decision requests. *policy.Engine implements it.
type Decider interface {
	Decide(ctx context.Context, input policy.DecisionInput) (policy.Decision, error)
}

// PolicyStore replaces and lists tenant policy sets. *policy.Importer
// implements it.
type PolicyStore interface {
	Import(ctx context.Context, tenantID, version string, rules []policy.Rule) (int, error)
	List(ctx context.Context, tenantID string) ([]policy.Policy, error)
}

// Ledger records traces and their events. *ledger.Manager implements it.
type Ledger interface {
	Start(ctx context.Context, meta ledger.TraceMeta) (string, error)
	LogModelCall(ctx context.Context, traceID string, log ledger.ModelCallLog) (string, error)
	LogAgentCall(ctx context.Context, traceID string, log ledger.AgentCallLog) (string, error)
	LogAuditEvent(ctx context.Context, traceID string, log ledger.AuditEventLog) (string, error)
	End(ctx context.Context, traceID string, status ledger.Status, summary string) error
	Get(ctx context.Context, traceID string) (ledger.TraceRecord, error)
}

// Stats answers overview queries. *stats.Aggregator implements it.
type Stats interface {
	Overview(ctx context.Context, q stats.Query) (stats.Overview, error)
}

// Handler serves the API routes.
type Handler struct {
	decider  Decider
	policies PolicyStore
	ledger   Ledger
	stats    Stats
	logger   *slog.Logger
}

// New creates a handler.
func New(decider Decider, policies PolicyStore, l Ledger, s Stats, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		decider:  decider,
		policies: policies,
		ledger:   l,
		stats:    s,
		logger:   logger.With("component", "api"),
	}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/decisions", h.Decide)

		r.Put("/tenants/{tenantId}/policies", h.ImportPolicies)
		r.Get("/tenants/{tenantId}/policies", h.ListPolicies)

		r.Post("/traces", h.StartTrace)
		r.Get("/traces/{traceId}", h.GetTrace)
		r.Post("/traces/{traceId}/model-calls", h.LogModelCall)
		r.Post("/traces/{traceId}/agent-calls", h.LogAgentCall)
		r.Post("/traces/{traceId}/audit-events", h.LogAuditEvent)
		r.Post("/traces/{traceId}/end", h.EndTrace)

		r.Get("/stats/overview", h.StatsOverview)
	})
}

// NotFound answers unknown routes with the API error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusNotFound, api.NewErrorResponse(api.CodeNotFound, "route not found"))
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusMethodNotAllowed,
		api.NewErrorResponse(api.CodeMethodNotAllowed, "method "+r.Method+" not allowed"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	api.WriteError(w, r, h.logger, err)
}
