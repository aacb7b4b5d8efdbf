package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/arbiter/pkg/config"
)

// exposedHeaders are readable by browser clients on every response.
var exposedHeaders = []string{RequestIDHeader, "X-Trace-ID"}

// CORS adds Cross-Origin Resource Sharing headers and answers preflight
// OPTIONS requests with 204. A disabled config passes requests through.
//
// Example:
//
//	handler = CORS(config.CORSConfig{
//	    Enabled:        true,
//	    AllowedOrigins: []string{"https://console.example.com"},
//	    AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
//	    AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
//	    MaxAge:         3600,
//	})(handler)
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			switch {
			case slices.Contains(cfg.AllowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
			case slices.Contains(cfg.AllowedOrigins, "*"):
				h.Set("Access-Control-Allow-Origin", "*")
			default:
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Expose-Headers", strings.Join(exposedHeaders, ", "))

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if len(cfg.AllowedMethods) > 0 {
					h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				}
				if len(cfg.AllowedHeaders) > 0 {
					h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
