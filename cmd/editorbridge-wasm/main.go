//go:build js && wasm

// Command editorbridge-wasm runs the bridge inside a webview page. The page
// injects its configuration and initial document as globals before the
// module starts; the control surface is published as
// window.EditorBridgeEditor. User editing happens in the textarea named by
// __EDITOR_BRIDGE_ELEMENT__ (default "editor"), created when the page has
// none.
package main

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/bridge"
	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/loader"
	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/page"
	"github.com/dshills/editorbridge/internal/transport"
)

const (
	handlerName    = "editorBridge"
	defaultElement = "editor"
)

// bound is set once the backend is ready and the element is bound.
var bound atomic.Pointer[page.Binding]

func main() {
	logger := logging.New(logging.Config{Level: logging.ParseLevel(global("__EDITOR_BRIDGE_LOG_LEVEL__"))})
	logging.Set(logger)

	cfg := config.FromJSON([]byte(stringify(js.Global().Get("__EDITOR_BRIDGE_CONFIG__"))))
	content := global("__EDITOR_BRIDGE_VALUE__")

	adapter := transport.NewAdapter(hostChannels(), transport.WithLogger(logger))
	editor := bridge.Start(context.Background(), bridge.Options{
		Config:    cfg,
		Content:   content,
		Loader:    moduleLoader(global("__EDITOR_BRIDGE_MODULE__")),
		Transport: adapter,
		Logger:    logger,
	})

	el := textElement(global("__EDITOR_BRIDGE_ELEMENT__"))
	publish(editor, el, logger)

	go func() {
		if err := editor.Wait(context.Background()); err != nil {
			logger.Warn("editor not ready", zap.Error(err))
			return
		}
		b := page.Bind(editor, textarea{el})
		listen(el, b)
		bound.Store(b)
		logger.Debug("element bound", zap.String("engine", string(editor.Engine())))
	}()

	select {}
}

// hostChannels probes the embedding webviews in priority order. Each probe
// runs on every send, so a bridge object injected after startup is picked
// up.
func hostChannels() []transport.Channel {
	return []transport.Channel{
		transport.NewFuncChannel("flutter_inappwebview",
			func() bool { return isFunc(js.Global().Get("flutter_inappwebview"), "callHandler") },
			func(msg []byte) error {
				js.Global().Get("flutter_inappwebview").Call("callHandler", handlerName, string(msg))
				return nil
			}),
		transport.NewFuncChannel("chrome.webview",
			func() bool {
				chrome := js.Global().Get("chrome")
				return present(chrome) && isFunc(chrome.Get("webview"), "postMessage")
			},
			func(msg []byte) error {
				js.Global().Get("chrome").Get("webview").Call("postMessage", string(msg))
				return nil
			}),
		transport.NewFuncChannel("EditorBridge",
			func() bool { return isFunc(js.Global().Get("EditorBridge"), "postMessage") },
			func(msg []byte) error {
				js.Global().Get("EditorBridge").Call("postMessage", string(msg))
				return nil
			}),
	}
}

// moduleLoader returns nil when the page names no module, "builtin" for the
// bundled module, and otherwise loads from the given base URL.
func moduleLoader(source string) loader.Loader {
	switch source {
	case "":
		return nil
	case "builtin":
		return loader.BuiltinLoader{}
	default:
		return loader.LuaLoader{Resolver: loader.NewHTTPResolver(source), Name: "editor"}
	}
}

// textElement finds the element with the given id, or creates a textarea
// with that id at the end of the body.
func textElement(id string) js.Value {
	if id == "" {
		id = defaultElement
	}
	doc := js.Global().Get("document")
	el := doc.Call("getElementById", id)
	if present(el) {
		return el
	}
	el = doc.Call("createElement", "textarea")
	el.Set("id", id)
	el.Set("spellcheck", false)
	doc.Get("body").Call("appendChild", el)
	return el
}

// textarea adapts a DOM text element to page.Element.
type textarea struct{ v js.Value }

func (t textarea) Value() string        { return t.v.Get("value").String() }
func (t textarea) SetValue(text string) { t.v.Set("value", text) }
func (t textarea) SetReadOnly(ro bool)  { t.v.Set("readOnly", ro) }

func (t textarea) CaretPrefix() string {
	return t.v.Get("value").Call("substring", 0, t.v.Get("selectionStart")).String()
}

func listen(el js.Value, b *page.Binding) {
	on := func(event string, f func(ev js.Value)) {
		el.Call("addEventListener", event, js.FuncOf(func(this js.Value, args []js.Value) any {
			if len(args) > 0 {
				f(args[0])
			}
			return nil
		}))
	}

	on("input", func(js.Value) { b.Edited() })
	on("focus", func(js.Value) { b.Focused(true) })
	on("blur", func(js.Value) { b.Focused(false) })
	for _, event := range []string{"keyup", "click", "select"} {
		on(event, func(js.Value) { b.CaretMoved() })
	}
	on("keydown", func(ev js.Value) {
		mod := ev.Get("ctrlKey").Truthy() || ev.Get("metaKey").Truthy()
		if b.Key(ev.Get("key").String(), mod) {
			ev.Call("preventDefault")
		}
	})
}

func publish(e *bridge.Editor, el js.Value, logger *zap.Logger) {
	api := js.Global().Get("Object").New()
	fn := func(name string, f func(args []js.Value) any) {
		api.Set(name, js.FuncOf(func(this js.Value, args []js.Value) any {
			ret := f(args)
			if b := bound.Load(); b != nil {
				b.Sync()
			}
			return ret
		}))
	}

	fn("getValue", func([]js.Value) any { return e.Value() })
	fn("setValue", func(args []js.Value) any {
		e.SetValue(argString(args, 0), argBool(args, 1))
		return nil
	})
	fn("focus", func([]js.Value) any {
		e.Focus()
		if bound.Load() != nil {
			el.Call("focus")
		}
		return nil
	})
	fn("blur", func([]js.Value) any {
		e.Blur()
		if bound.Load() != nil {
			el.Call("blur")
		}
		return nil
	})
	fn("selectAll", func([]js.Value) any { e.SelectAll(); return nil })
	fn("insertText", func(args []js.Value) any {
		e.InsertText(argString(args, 0))
		return nil
	})
	fn("revealLine", func(args []js.Value) any {
		if len(args) > 0 && args[0].Type() == js.TypeNumber {
			e.RevealLine(args[0].Int())
		}
		return nil
	})
	fn("setMarkers", func(args []js.Value) any {
		raw := "null"
		if len(args) > 0 {
			raw = stringify(args[0])
		}
		e.SetMarkersJSON([]byte(raw))
		return nil
	})
	fn("formatDocument", func([]js.Value) any { return e.FormatDocument(context.Background()) })
	fn("setOptions", func(args []js.Value) any {
		var opts map[string]any
		if len(args) > 0 {
			if err := json.Unmarshal([]byte(stringify(args[0])), &opts); err != nil {
				logger.Debug("setOptions: not an object", zap.Error(err))
			}
		}
		e.SetOptions(opts)
		return nil
	})
	fn("setTheme", func(args []js.Value) any {
		e.SetTheme(argString(args, 0))
		return nil
	})

	js.Global().Set("EditorBridgeEditor", api)
}

func present(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

func isFunc(obj js.Value, method string) bool {
	return present(obj) && obj.Get(method).Type() == js.TypeFunction
}

func global(name string) string {
	v := js.Global().Get(name)
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func stringify(v js.Value) string {
	if !present(v) {
		return "null"
	}
	return js.Global().Get("JSON").Call("stringify", v).String()
}

func argString(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func argBool(args []js.Value, i int) bool {
	return i < len(args) && args[i].Truthy()
}
