package memory

import "errors"

var (
	errClosed      = errors.New("store is closed")
	errDuplicateID = errors.New("duplicate trace id")
)
