package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/arbiter/pkg/api"
)

// Recovery recovers from panics in handlers and answers 500 with a generic
// error body. The panic value and stack are logged, never returned.
// http.ErrAbortHandler is re-panicked so the server aborts the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", rvr,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				api.WriteJSON(w, http.StatusInternalServerError,
					api.NewErrorResponse(api.CodeInternal, "an internal error occurred"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
