package host

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMethod is returned for a call naming no control operation.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrMalformedCall is returned when a frame is not a call object.
	ErrMalformedCall = errors.New("malformed call")

	// ErrServerClosed is returned by servers after Close.
	ErrServerClosed = errors.New("server closed")
)

// CallError wraps a failure of a single call.
type CallError struct {
	Method string
	Err    error
}

func (e *CallError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("call: %v", e.Err)
	}
	return fmt.Sprintf("call %s: %v", e.Method, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
