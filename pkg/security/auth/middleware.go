package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/arbiter/pkg/api"
	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

type contextKey struct{}

// #nosec G101 - context key, not a credential
var keyContextKey = contextKey{}

// Middleware authenticates every request with an API key from header or a
// bearer Authorization header.
func Middleware(v *Validator, header string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractKey(r, header)
			key, err := v.Validate(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "API key rejected",
					"reason", rejectReason(raw, err),
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="arbiter"`)
				api.WriteJSON(w, http.StatusUnauthorized, api.NewErrorResponse(api.CodeUnauthorized, "missing or invalid API key"))
				return
			}

			ctx := context.WithValue(r.Context(), keyContextKey, key)
			ctx = logging.WithPrincipal(ctx, key.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(r *http.Request, header string) string {
	if v := r.Header.Get(header); v != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func rejectReason(raw string, err error) string {
	switch {
	case raw == "":
		return "missing"
	case errors.Is(err, ErrDisabledKey):
		return "disabled"
	default:
		return "unknown"
	}
}

// KeyFromContext returns the authenticated key of a request.
func KeyFromContext(ctx context.Context) (*Key, bool) {
	key, ok := ctx.Value(keyContextKey).(*Key)
	return key, ok
}

// CheckTenant returns a ForbiddenError when the request's key may not act
// on tenantID. Unauthenticated contexts are allowed, and an empty tenantID
// is left to input validation.
func CheckTenant(ctx context.Context, tenantID string) error {
	key, ok := KeyFromContext(ctx)
	if !ok || tenantID == "" || key.AllowsTenant(tenantID) {
		return nil
	}
	return apperrors.NewForbiddenError("API key "+key.Name, tenantID)
}
