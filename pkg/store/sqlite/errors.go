package sqlite

import (
	"strings"

	"mercator-hq/arbiter/pkg/apperrors"
)

// wrap converts a driver error into a StoreError. nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.NewStoreError(backend, op, err)
}

// isForeignKeyViolation matches the message both drivers use; the error
// types differ between them.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
