package host

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/dshills/editorbridge/internal/jsonedit"
)

// NewJSONEditDispatcher creates a dispatcher for the validating JSON
// editor. Format and apply failures are reported to the host as events by
// the editor and as call errors in the reply.
func NewJSONEditDispatcher(e *jsonedit.Editor, opts ...DispatcherOption) *Dispatcher {
	return newDispatcher(map[string]handlerFunc{
		"getValue": func(context.Context, gjson.Result) (any, error) {
			return e.Value(), nil
		},
		"setValue": func(_ context.Context, p gjson.Result) (any, error) {
			e.SetValue(p.Get("value").String(), p.Get("silent").Bool())
			return nil, nil
		},
		"setConfig": func(_ context.Context, p gjson.Result) (any, error) {
			cfg, _ := p.Get("config").Value().(map[string]any)
			e.SetConfig(cfg)
			return nil, nil
		},
		"input": func(_ context.Context, p gjson.Result) (any, error) {
			e.Input(p.Get("text").String())
			return nil, nil
		},
		"status": func(context.Context, gjson.Result) (any, error) {
			return map[string]any{"status": e.Status(), "valid": e.Valid()}, nil
		},
		"format": func(context.Context, gjson.Result) (any, error) {
			return nil, e.Format()
		},
		"apply": func(context.Context, gjson.Result) (any, error) {
			return nil, e.Apply()
		},
	}, opts)
}
