// Package apperrors defines the error taxonomy shared by the policy engine,
// the trace ledger, the stats aggregator and the storage backends.
//
// # Error Kinds
//
// ValidationError: malformed or missing caller input, with the failing fields
// enumerated. Never retried.
//
// NotFoundError: the referenced trace or tenant has no data.
//
// ConflictError: the operation is invalid for the resource's current state
// (ending a trace that already ended).
//
// StoreError: connectivity, constraint or timeout failures from a backend.
// Timeouts are marked retryable; retries belong to the caller's transport.
//
// InternalError: anything unexpected.
//
// # Usage
//
//	if err := validate(in); err != nil {
//	    return apperrors.NewValidationError("tenantId", "is required")
//	}
//
//	switch apperrors.KindOf(err) {
//	case apperrors.KindValidation:
//	    // 400
//	case apperrors.KindNotFound:
//	    // 404
//	}
package apperrors
