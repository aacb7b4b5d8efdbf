// Package api defines the JSON error envelope of the HTTP API and the
// mapping from apperrors kinds to status codes.
//
// Every error response has the shape:
//
//	{"error": {"code": "validation_error", "message": "...", "details": {...}}}
//
// Store and internal failures are reported with a generic message; their
// cause is logged, never returned.
package api
