package loader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/config"
)

// State is the selector's position in its state machine.
type State int

const (
	StateUninitialized State = iota
	StateProbingPrimary
	StatePrimaryActive
	StateFallbackActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProbingPrimary:
		return "probing_primary"
	case StatePrimaryActive:
		return "primary_active"
	case StateFallbackActive:
		return "fallback_active"
	default:
		return "unknown"
	}
}

// Constructor builds the rich backend from a loaded module.
type Constructor func(cfg config.Config, content string, mod *Module) (backend.Backend, error)

// DefaultConstructor builds a backend.Rich.
func DefaultConstructor(cfg config.Config, content string, mod *Module) (backend.Backend, error) {
	return backend.NewRich(cfg, content, backend.RichOptions{
		Formatters: mod.Formatters,
		Themes:     mod.Themes,
	})
}

// Result is the outcome of backend selection.
type Result struct {
	Backend backend.Backend
	Engine  backend.Kind
	Reason  Reason
	// Err is the load or construction error that caused a fallback.
	Err error
}

// Selector chooses between the primary and fallback backends exactly once.
type Selector struct {
	mu        sync.Mutex
	once      sync.Once
	loader    Loader
	construct Constructor
	logger    *zap.Logger
	state     State
	result    Result
	module    *Module
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithLogger sets the selector's logger.
func WithLogger(l *zap.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConstructor replaces the rich backend constructor.
func WithConstructor(c Constructor) SelectorOption {
	return func(s *Selector) {
		if c != nil {
			s.construct = c
		}
	}
}

// NewSelector creates a selector. A nil loader always selects the
// fallback with ReasonLoaderMissing.
func NewSelector(l Loader, opts ...SelectorOption) *Selector {
	s := &Selector{
		loader:    l,
		construct: DefaultConstructor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("selector")
	return s
}

// State returns the current state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Selector) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Reason returns the fallback reason, or ReasonNone.
func (s *Selector) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Reason
}

// Select runs selection on the first call and returns its result on every
// call. It blocks until the load completes, fails, or the configured load
// timeout expires. The returned backend is never nil.
func (s *Selector) Select(ctx context.Context, cfg config.Config, content string) Result {
	s.once.Do(func() {
		s.setState(StateProbingPrimary)
		res := s.probe(ctx, cfg, content)

		s.mu.Lock()
		s.result = res
		if res.Engine == backend.KindPrimary {
			s.state = StatePrimaryActive
		} else {
			s.state = StateFallbackActive
		}
		s.mu.Unlock()

		if res.Reason != ReasonNone {
			s.logger.Info("fallback backend selected",
				zap.String("reason", string(res.Reason)),
				zap.Error(res.Err))
		} else {
			s.logger.Debug("primary backend selected")
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Selector) probe(ctx context.Context, cfg config.Config, content string) Result {
	if s.loader == nil {
		return fallback(cfg, content, ErrLoaderMissing)
	}

	if cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
	}

	mod, err := s.load(ctx)
	if err != nil {
		return fallback(cfg, content, err)
	}

	b, err := s.build(cfg, content, mod)
	if err != nil {
		_ = mod.Close()
		return fallback(cfg, content, err)
	}

	s.mu.Lock()
	s.module = mod
	s.mu.Unlock()
	return Result{Backend: b, Engine: backend.KindPrimary}
}

func (s *Selector) load(ctx context.Context) (mod *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, &LoadError{Stage: "resolve", Err: fmt.Errorf("%w: loader panic: %v", ErrModuleUnavailable, r)}
		}
	}()
	mod, err = s.loader.Load(ctx)
	if err == nil && mod == nil {
		err = &LoadError{Stage: "export", Err: fmt.Errorf("%w: loader returned no module", ErrModuleInvalid)}
	}
	return mod, err
}

func (s *Selector) build(cfg config.Config, content string, mod *Module) (b backend.Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, &LoadError{Stage: "construct", Module: mod.Name, Err: fmt.Errorf("%w: panic: %v", ErrConstruct, r)}
		}
	}()
	b, err = s.construct(cfg, content, mod)
	if err != nil {
		return nil, &LoadError{Stage: "construct", Module: mod.Name, Err: fmt.Errorf("%w: %v", ErrConstruct, err)}
	}
	if b == nil {
		return nil, &LoadError{Stage: "construct", Module: mod.Name, Err: fmt.Errorf("%w: constructor returned nil", ErrConstruct)}
	}
	return b, nil
}

func fallback(cfg config.Config, content string, err error) Result {
	return Result{
		Backend: backend.NewPlain(cfg, content),
		Engine:  backend.KindFallback,
		Reason:  ReasonFor(err),
		Err:     err,
	}
}

// Close releases the loaded module, if any.
func (s *Selector) Close() error {
	s.mu.Lock()
	mod := s.module
	s.module = nil
	s.mu.Unlock()
	return mod.Close()
}
