package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for propagation and for mapping at the HTTP boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindStore      Kind = "store"
	KindInternal   Kind = "internal"
)

// FieldError describes one invalid input field.
type FieldError struct {
	// Field is the dotted path of the offending field (e.g., "rules[2].decision.effect").
	Field string `json:"field"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError reports malformed or missing caller input. It is surfaced
// to the caller and never retried.
type ValidationError struct {
	Fields []FieldError
}

// Error returns a formatted string containing all field errors.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Fields[0].Error())
	}

	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Fields), strings.Join(parts, "; "))
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it carries at least one field error and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError indicates the referenced resource has no data.
type NotFoundError struct {
	Resource string // "trace", "tenant", ...
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError indicates the operation is not valid for the current state
// of the resource.
type ConflictError struct {
	Resource string
	ID       string
	Cause    error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Resource, e.ID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// NewConflictError creates a new ConflictError.
func NewConflictError(resource, id string, cause error) *ConflictError {
	return &ConflictError{Resource: resource, ID: id, Cause: cause}
}

// ForbiddenError indicates an authenticated caller may not act on a
// tenant.
type ForbiddenError struct {
	Principal string
	TenantID  string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s may not access tenant %q", e.Principal, e.TenantID)
}

// NewForbiddenError creates a new ForbiddenError.
func NewForbiddenError(principal, tenantID string) *ForbiddenError {
	return &ForbiddenError{Principal: principal, TenantID: tenantID}
}

// StoreError represents a failure in the storage backend: connectivity,
// constraint violation or timeout. Retryable is set for timeouts; retries are
// left to the caller.
type StoreError struct {
	Backend   string // Storage backend type ("sqlite", "postgres", "memory")
	Operation string // Operation that failed ("insert_trace", "aggregate", ...)
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError. Deadline and cancellation causes
// are marked retryable.
func NewStoreError(backend, operation string, cause error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		Retryable: errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled),
		Cause:     cause,
	}
}

// InternalError wraps an unexpected failure.
type InternalError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates a new InternalError.
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// KindOf returns the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		conflict   *ConflictError
		forbidden  *ForbiddenError
		store      *StoreError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &conflict):
		return KindConflict
	case errors.As(err, &forbidden):
		return KindForbidden
	case errors.As(err, &store):
		return KindStore
	default:
		return KindInternal
	}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRetryable reports whether err is a StoreError marked retryable.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Retryable
}
