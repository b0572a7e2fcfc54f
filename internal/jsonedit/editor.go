package jsonedit

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/coalesce"
	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/transport"
)

// ChangeDebounce is the quiet period before a change notification.
const ChangeDebounce = 200 * time.Millisecond

var (
	// ErrUnavailable is returned when an action is disabled by the
	// current configuration.
	ErrUnavailable = errors.New("action unavailable")

	// ErrInvalid is returned when an action needs a valid document.
	ErrInvalid = errors.New("invalid json")
)

// Editor is a validating JSON editor instance.
//
// Thread-safety: All methods are safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	cfg       Config
	text      string
	last      Result
	closed    bool
	transport *transport.Adapter
	coalescer *coalesce.Coalescer
	logger    *zap.Logger
	debounce  time.Duration
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDebounce overrides ChangeDebounce.
func WithDebounce(d time.Duration) Option {
	return func(e *Editor) {
		e.debounce = d
	}
}

// New creates an editor holding initial. Loading the initial text never
// notifies the host.
func New(cfg Config, initial string, t *transport.Adapter, opts ...Option) *Editor {
	e := &Editor{
		cfg:       cfg,
		transport: t,
		logger:    logging.L(),
		debounce:  ChangeDebounce,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("jsonedit")
	e.coalescer = coalesce.New(e.debounce, true, e.emitChange)
	e.SetValue(initial, true)
	return e
}

// Value returns the buffer.
func (e *Editor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// Config returns the current configuration.
func (e *Editor) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Status returns the toolbar status text for the buffer.
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.Status(e.text)
}

// Valid reports whether the buffer currently parses.
func (e *Editor) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.Valid
}

// SetValue replaces the buffer. Unless silent, a change notification is
// scheduled.
func (e *Editor) SetValue(text string, silent bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.setLocked(text)
	e.mu.Unlock()
	if !silent {
		e.notifyChange()
	}
}

// SetConfig replaces the configuration from a host object.
func (e *Editor) SetConfig(m map[string]any) {
	cfg := ParseConfig(m)
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Input applies a user edit that leaves the buffer holding text. It is
// ignored while the editor is disabled or read-only.
func (e *Editor) Input(text string) {
	e.mu.Lock()
	if e.closed || !e.cfg.CanEdit() {
		e.mu.Unlock()
		return
	}
	e.setLocked(text)
	e.mu.Unlock()
	e.notifyChange()
}

// Format pretty-prints the buffer with two-space indentation, replaces it,
// and emits a format event. Invalid input emits an error event instead.
func (e *Editor) Format() error {
	e.mu.Lock()
	if e.closed || !e.cfg.CanFormat() {
		e.mu.Unlock()
		return ErrUnavailable
	}
	res := e.reparseLocked()
	text := e.text
	e.mu.Unlock()

	if !res.Valid {
		e.send(transport.EventError, transport.Payload{"message": res.errorMessage()})
		return ErrInvalid
	}

	formatted := "null"
	if res.Value != nil {
		var err error
		formatted, err = backend.FormatJSON(text)
		if err != nil {
			e.send(transport.EventError, transport.Payload{"message": err.Error()})
			return err
		}
	}
	e.SetValue(formatted, false)
	e.send(transport.EventFormat, transport.Payload{"text": formatted})
	return nil
}

// Apply emits the buffer and its parsed value as an apply event. Invalid
// input emits an error event instead.
func (e *Editor) Apply() error {
	e.mu.Lock()
	if e.closed || !e.cfg.CanApply() {
		e.mu.Unlock()
		return ErrUnavailable
	}
	res := e.reparseLocked()
	text := e.text
	e.mu.Unlock()

	if !res.Valid {
		e.send(transport.EventError, transport.Payload{"message": res.errorMessage()})
		return ErrInvalid
	}
	var value any
	if res.Value != nil {
		value = res.Value
	}
	e.send(transport.EventApply, transport.Payload{"text": text, "value": value})
	return nil
}

// Close cancels any pending notification.
func (e *Editor) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.coalescer.Stop()
	return nil
}

func (e *Editor) setLocked(text string) {
	e.text = text
	e.last = Parse(text)
}

func (e *Editor) reparseLocked() Result {
	e.last = Parse(e.text)
	return e.last
}

func (e *Editor) notifyChange() {
	e.mu.Lock()
	emit := e.cfg.EmitOnChange
	e.mu.Unlock()
	if emit {
		e.coalescer.Notify()
	}
}

func (e *Editor) emitChange() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	payload := transport.Payload{
		"text":  e.text,
		"valid": e.last.Valid,
		"error": nil,
	}
	if !e.last.Valid {
		payload["error"] = e.last.errorMessage()
	}
	e.mu.Unlock()
	e.send(transport.EventChange, payload)
}

func (e *Editor) send(event string, payload transport.Payload) {
	e.logger.Debug("send", zap.String("event", event))
	e.transport.Send(event, payload)
}
