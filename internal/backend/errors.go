package backend

import "errors"

// Backend errors.
var (
	// ErrClosed indicates an operation on a closed backend.
	ErrClosed = errors.New("backend closed")

	// ErrInvalidFormatter indicates a nil formatter was registered.
	ErrInvalidFormatter = errors.New("invalid formatter")
)
