package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/bridge"
	"github.com/dshills/editorbridge/internal/logging"
)

// Call is a decoded inbound call.
type Call struct {
	// ID is the raw JSON id, echoed in the reply. Empty when absent.
	ID     string
	Method string
	Params gjson.Result
}

// DecodeCall parses a call frame.
func DecodeCall(data []byte) (Call, error) {
	if !gjson.ValidBytes(data) {
		return Call{}, ErrMalformedCall
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return Call{}, ErrMalformedCall
	}
	method := obj.Get("method")
	if method.Type != gjson.String || method.Str == "" {
		return Call{}, ErrMalformedCall
	}
	return Call{
		ID:     obj.Get("id").Raw,
		Method: method.Str,
		Params: obj.Get("params"),
	}, nil
}

// handlerFunc runs one control operation.
type handlerFunc func(ctx context.Context, params gjson.Result) (any, error)

// Dispatcher maps calls onto a control surface.
//
// Thread-safety: Dispatch is safe for concurrent use if the surface is.
type Dispatcher struct {
	handlers map[string]handlerFunc
	logger   *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func newDispatcher(handlers map[string]handlerFunc, opts []DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: handlers,
		logger:   logging.L(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("host")
	return d
}

// NewDispatcher creates a dispatcher for an editor's control surface.
func NewDispatcher(s bridge.Surface, opts ...DispatcherOption) *Dispatcher {
	return newDispatcher(surfaceHandlers(s), opts)
}

func surfaceHandlers(s bridge.Surface) map[string]handlerFunc {
	return map[string]handlerFunc{
		"getValue": func(context.Context, gjson.Result) (any, error) {
			return s.Value(), nil
		},
		"setValue": func(_ context.Context, p gjson.Result) (any, error) {
			s.SetValue(p.Get("value").String(), p.Get("silent").Bool())
			return nil, nil
		},
		"focus": func(context.Context, gjson.Result) (any, error) {
			s.Focus()
			return nil, nil
		},
		"blur": func(context.Context, gjson.Result) (any, error) {
			s.Blur()
			return nil, nil
		},
		"selectAll": func(context.Context, gjson.Result) (any, error) {
			s.SelectAll()
			return nil, nil
		},
		"insertText": func(_ context.Context, p gjson.Result) (any, error) {
			s.InsertText(p.Get("text").String())
			return nil, nil
		},
		"revealLine": func(_ context.Context, p gjson.Result) (any, error) {
			s.RevealLine(int(p.Get("line").Int()))
			return nil, nil
		},
		"setMarkers": func(_ context.Context, p gjson.Result) (any, error) {
			s.SetMarkersJSON([]byte(p.Get("markers").Raw))
			return nil, nil
		},
		"formatDocument": func(ctx context.Context, _ gjson.Result) (any, error) {
			return s.FormatDocument(ctx), nil
		},
		"setOptions": func(_ context.Context, p gjson.Result) (any, error) {
			opts, _ := p.Get("options").Value().(map[string]any)
			s.SetOptions(opts)
			return nil, nil
		},
		"setTheme": func(_ context.Context, p gjson.Result) (any, error) {
			s.SetTheme(p.Get("theme").String())
			return nil, nil
		},
	}
}

// Methods returns the names of the supported calls.
func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	return out
}

// Dispatch runs call and returns its result.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (result any, err error) {
	h, ok := d.handlers[call.Method]
	if !ok {
		return nil, &CallError{Method: call.Method, Err: ErrUnknownMethod}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &CallError{Method: call.Method, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	result, err = h(ctx, call.Params)
	if err != nil {
		return nil, &CallError{Method: call.Method, Err: err}
	}
	return result, nil
}

// Handle decodes a frame, dispatches it and returns the reply frame.
func (d *Dispatcher) Handle(ctx context.Context, frame []byte) []byte {
	call, err := DecodeCall(frame)
	if err != nil {
		d.logger.Debug("rejected frame", zap.Error(err))
		return Reply(call.ID, nil, &CallError{Err: err})
	}
	result, err := d.Dispatch(ctx, call)
	if err != nil {
		d.logger.Debug("call failed", zap.String("method", call.Method), zap.Error(err))
	}
	return Reply(call.ID, result, err)
}

// Reply encodes a reply frame: {"id":..,"result":..} on success or
// {"id":..,"error":"..."} on failure. A missing id is encoded as null.
func Reply(id string, result any, err error) []byte {
	if strings.TrimSpace(id) == "" {
		id = "null"
	}
	out, _ := sjson.SetRawBytes([]byte(`{}`), "id", []byte(id))
	if err != nil {
		out, _ = sjson.SetBytes(out, "error", err.Error())
		return out
	}
	if result == nil {
		out, _ = sjson.SetRawBytes(out, "result", []byte("null"))
		return out
	}
	res, serr := sjson.SetBytes(out, "result", result)
	if serr != nil {
		out, _ = sjson.SetBytes(out, "error", serr.Error())
		return out
	}
	return res
}
