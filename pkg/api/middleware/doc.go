// Package middleware provides the HTTP middleware chain of the API server.
//
// # Middleware Chain
//
// The server applies middleware in this order, outermost first:
//
//  1. Recovery: turns handler panics into 500 responses
//  2. RequestID: reads or generates X-Request-ID and stores it in the context
//  3. Logging: one structured access log line and one metrics sample per request
//  4. CORS: answers preflight requests and sets CORS headers
//  5. BodyLimit: caps the request body size
//  6. Timeout: bounds handler time and answers 504 when it is exceeded
//
// Every error written by this package uses the api error envelope.
//
// # Usage
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.Recovery(logger),
//	    middleware.RequestID,
//	    middleware.Logging(logger, collector),
//	    middleware.CORS(cfg.Server.CORS),
//	    middleware.BodyLimit(cfg.Server.MaxBodyBytes),
//	    middleware.Timeout(cfg.Server.RequestTimeout),
//	)
package middleware
