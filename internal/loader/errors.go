package loader

import (
	"context"
	"errors"
	"fmt"
)

// Loader errors.
var (
	// ErrLoaderMissing indicates no loader is configured for the primary backend.
	ErrLoaderMissing = errors.New("primary backend loader missing")

	// ErrModuleUnavailable indicates the module source could not be resolved.
	ErrModuleUnavailable = errors.New("module unavailable")

	// ErrModuleInvalid indicates the module could not be compiled or did not
	// export the expected table.
	ErrModuleInvalid = errors.New("module invalid")

	// ErrConstruct indicates the rich backend could not be constructed.
	ErrConstruct = errors.New("backend construction failed")

	// ErrStateClosed indicates use of a closed Lua runtime.
	ErrStateClosed = errors.New("lua state closed")
)

// Reason explains why the fallback backend was chosen.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonLoaderMissing   Reason = "loader_missing"
	ReasonCDNUnavailable  Reason = "cdn_unavailable"
	ReasonLoadTimeout     Reason = "load_timeout"
	ReasonModuleInvalid   Reason = "module_invalid"
	ReasonConstructFailed Reason = "construct_failed"
)

// ReasonFor maps a load or construction error to its reason code.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrLoaderMissing):
		return ReasonLoaderMissing
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonLoadTimeout
	case errors.Is(err, ErrModuleInvalid):
		return ReasonModuleInvalid
	case errors.Is(err, ErrConstruct):
		return ReasonConstructFailed
	default:
		return ReasonCDNUnavailable
	}
}

// LoadError records which stage of loading failed.
type LoadError struct {
	Stage  string // "resolve", "compile", "export", "construct"
	Module string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("%s module %s: %v", e.Stage, e.Module, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
