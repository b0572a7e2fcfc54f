package bridge

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/coalesce"
	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/loader"
	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/marker"
	"github.com/dshills/editorbridge/internal/transport"
)

// ErrClosed is returned by Wait when the editor was closed before it
// became ready.
var ErrClosed = errors.New("editor closed")

// Options configures Start.
type Options struct {
	// Config is the resolved session configuration.
	Config config.Config

	// Content is the initial buffer.
	Content string

	// Loader loads the primary backend's module. Nil selects the fallback.
	Loader loader.Loader

	// Transport carries outbound messages. Nil drops them.
	Transport *transport.Adapter

	// Logger defaults to the process-wide logger.
	Logger *zap.Logger

	// SelectorOptions are passed to the backend selector.
	SelectorOptions []loader.SelectorOption
}

// Editor is a bridge instance.
type Editor struct {
	mu        sync.Mutex
	cfg       config.Config
	transport *transport.Adapter
	logger    *zap.Logger
	selector  *loader.Selector
	coalescer *coalesce.Coalescer

	backend backend.Backend // nil until ready
	engine  backend.Kind
	reason  loader.Reason
	closed  bool
	ready   chan struct{}
}

// Start creates an editor and begins backend selection in the background.
// It returns immediately; use Ready or Wait to observe completion.
func Start(ctx context.Context, opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}

	e := &Editor{
		cfg:       opts.Config,
		transport: opts.Transport,
		logger:    logger.Named("bridge"),
		ready:     make(chan struct{}),
	}
	selOpts := append([]loader.SelectorOption{loader.WithLogger(logger)}, opts.SelectorOptions...)
	e.selector = loader.NewSelector(opts.Loader, selOpts...)
	e.coalescer = coalesce.New(opts.Config.Debounce, opts.Config.EmitOnChange, e.emitChange)

	go e.bootstrap(ctx, opts.Content)
	return e
}

// Bootstrap starts an editor and waits until it is ready.
func Bootstrap(ctx context.Context, opts Options) (*Editor, error) {
	e := Start(ctx, opts)
	if err := e.Wait(ctx); err != nil {
		return e, err
	}
	return e, nil
}

func (e *Editor) bootstrap(ctx context.Context, content string) {
	defer close(e.ready)
	defer e.recoverOp("bootstrap")

	res := e.selector.Select(ctx, e.cfg, content)
	b := res.Backend

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = b.Close()
		_ = e.selector.Close()
		return
	}
	e.backend = b
	e.engine = res.Engine
	e.reason = res.Reason
	e.mu.Unlock()

	b.Subscribe(listener{e})
	b.AddCommand(backend.ChordSave, func() {
		e.send(transport.EventSave, transport.Payload{"value": b.Value()})
	})
	if e.cfg.SubmitOnCtrlEnter {
		b.AddCommand(backend.ChordSubmit, func() {
			e.send(transport.EventSubmit, transport.Payload{"value": b.Value()})
		})
	}

	payload := transport.Payload{
		"engine":     string(res.Engine),
		"language":   e.cfg.Language,
		"line_count": b.LineCount(),
	}
	if res.Engine == backend.KindFallback {
		payload["reason"] = string(res.Reason)
	}
	if e.cfg.DocumentURI != "" {
		payload["document_uri"] = e.cfg.DocumentURI
	}
	e.send(transport.EventReady, payload)

	e.logger.Info("editor ready",
		zap.String("engine", string(res.Engine)),
		zap.String("reason", string(res.Reason)),
		zap.String("language", e.cfg.Language))
}

// Ready is closed once a backend is live or the editor was closed first.
func (e *Editor) Ready() <-chan struct{} {
	return e.ready
}

// Wait blocks until the editor is ready or ctx is done.
func (e *Editor) Wait(ctx context.Context) error {
	select {
	case <-e.ready:
		if e.live() == nil {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engine returns the selected backend variant, or "" before selection.
func (e *Editor) Engine() backend.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine
}

// Reason returns why the fallback was selected, or "".
func (e *Editor) Reason() loader.Reason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Config returns the session configuration as injected at bootstrap.
func (e *Editor) Config() config.Config {
	return e.cfg
}

// Backend returns the live backend, or nil before it is ready and after
// Close.
func (e *Editor) Backend() backend.Backend {
	return e.live()
}

// Close stops pending notifications and releases the backend. Later calls
// on the editor are no-ops.
func (e *Editor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	b := e.backend
	e.backend = nil
	e.mu.Unlock()

	e.coalescer.Stop()

	var err error
	if b != nil {
		err = multierr.Append(err, b.Close())
		err = multierr.Append(err, e.selector.Close())
	}
	return err
}

func (e *Editor) live() backend.Backend {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.backend
}

func (e *Editor) send(event string, payload transport.Payload) {
	e.transport.Send(event, payload)
}

// emitChange runs when the coalescer fires. The backend may have been torn
// down since the timer was armed.
func (e *Editor) emitChange() {
	defer e.recoverOp("change")
	b := e.live()
	if b == nil {
		return
	}
	e.send(transport.EventChange, transport.Payload{
		"value":      b.Value(),
		"line_count": b.LineCount(),
	})
}

func (e *Editor) recoverOp(op string) {
	if r := recover(); r != nil {
		e.logger.Error("operation panicked", zap.String("op", op), zap.Any("panic", r))
	}
}

// Control surface.

func (e *Editor) Value() (v string) {
	defer e.recoverOp("getValue")
	if b := e.live(); b != nil {
		return b.Value()
	}
	return ""
}

func (e *Editor) SetValue(text string, silent bool) {
	defer e.recoverOp("setValue")
	b := e.live()
	if b == nil {
		return
	}
	b.SetValue(text)
	if !silent {
		e.coalescer.Notify()
	}
}

func (e *Editor) Focus() {
	defer e.recoverOp("focus")
	if b := e.live(); b != nil {
		b.Focus()
	}
}

func (e *Editor) Blur() {
	defer e.recoverOp("blur")
	if b := e.live(); b != nil {
		b.Blur()
	}
}

func (e *Editor) SelectAll() {
	defer e.recoverOp("selectAll")
	if b := e.live(); b != nil {
		b.SelectAll()
	}
}

func (e *Editor) InsertText(text string) {
	defer e.recoverOp("insertText")
	b := e.live()
	if b == nil {
		return
	}
	b.InsertText(text)
	e.coalescer.Notify()
}

func (e *Editor) RevealLine(line int) {
	defer e.recoverOp("revealLine")
	if b := e.live(); b != nil {
		b.RevealLine(line)
	}
}

func (e *Editor) SetMarkers(markers []map[string]any) {
	defer e.recoverOp("setMarkers")
	if b := e.live(); b != nil {
		b.SetMarkers(marker.Normalize(markers))
	}
}

func (e *Editor) SetMarkersJSON(data []byte) {
	defer e.recoverOp("setMarkers")
	if b := e.live(); b != nil {
		b.SetMarkers(marker.NormalizeJSON(data))
	}
}

// FormatDocument may be called concurrently; calls are not serialized and
// each reports its own outcome.
func (e *Editor) FormatDocument(ctx context.Context) (ok bool) {
	defer e.recoverOp("formatDocument")
	b := e.live()
	if b == nil {
		return false
	}
	changed, err := b.Format(ctx)
	if err != nil {
		e.logger.Debug("format failed", zap.Error(err))
		return false
	}
	if changed {
		e.coalescer.Notify()
	}
	return changed
}

func (e *Editor) SetOptions(opts map[string]any) {
	defer e.recoverOp("setOptions")
	if b := e.live(); b != nil {
		b.ApplyOptions(config.ParseOptions(opts))
	}
}

func (e *Editor) SetTheme(theme string) {
	defer e.recoverOp("setTheme")
	if b := e.live(); b != nil {
		b.SetTheme(theme)
	}
}

// listener forwards backend-native events to the host.
type listener struct {
	e *Editor
}

func (l listener) ContentChanged() {
	l.e.coalescer.Notify()
}

func (l listener) FocusChanged(focused bool) {
	if focused {
		l.e.send(transport.EventFocus, nil)
		return
	}
	l.e.send(transport.EventBlur, nil)
}

func (l listener) CursorMoved(pos backend.Position) {
	l.e.send(transport.EventCursorChange, transport.Payload{
		"line":   pos.Line,
		"column": pos.Column,
	})
}
