package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"mercator-hq/arbiter/pkg/apperrors"
)

// Error codes returned in the error envelope.
const (
	CodeValidation       = "validation_error"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodePayloadTooLarge  = "payload_too_large"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeTimeout          = "timeout"
	CodeUnavailable      = "service_unavailable"
	CodeInternal         = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse creates an error body without details.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// StatusFor maps err to an HTTP status and error body.
func StatusFor(err error) (int, *ErrorResponse) {
	var (
		validation *apperrors.ValidationError
		notFound   *apperrors.NotFoundError
		conflict   *apperrors.ConflictError
		forbidden  *apperrors.ForbiddenError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, NewErrorResponse(CodePayloadTooLarge, "request body too large")
	case errors.As(err, &validation):
		resp := NewErrorResponse(CodeValidation, validation.Error())
		resp.Error.Details = map[string]any{"fields": validation.Fields}
		return http.StatusBadRequest, resp
	case errors.As(err, &notFound):
		return http.StatusNotFound, NewErrorResponse(CodeNotFound, notFound.Error())
	case errors.As(err, &conflict):
		return http.StatusConflict, NewErrorResponse(CodeConflict, conflict.Error())
	case errors.As(err, &forbidden):
		return http.StatusForbidden, NewErrorResponse(CodeForbidden, forbidden.Error())
	case apperrors.IsRetryable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(CodeUnavailable, "the store is temporarily unavailable, retry later")
	default:
		return http.StatusInternalServerError, NewErrorResponse(CodeInternal, "an internal error occurred")
	}
}

// WriteError writes err as a JSON error response. Server-side failures are
// logged with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, resp := StatusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", apperrors.KindOf(err),
			"error", err,
		)
	}
	WriteJSON(w, status, resp)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields
// and trailing data. Syntax errors are returned as ValidationErrors on
// field "body".
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return apperrors.NewValidationError("body", invalidBodyMessage(err))
	}
	if dec.More() {
		return apperrors.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

func invalidBodyMessage(err error) string {
	var (
		syntax    *json.SyntaxError
		typeError *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "is required"
	case errors.As(err, &syntax):
		return "is not valid JSON"
	case errors.As(err, &typeError):
		if typeError.Field != "" {
			return "field " + typeError.Field + " has the wrong type"
		}
		return "has the wrong type"
	default:
		return err.Error()
	}
}
