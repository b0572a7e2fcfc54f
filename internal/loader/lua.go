package loader

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/editorbridge/internal/backend"
)

// LuaLoader loads a module script through a Resolver and runs it in a
// restricted Lua runtime.
type LuaLoader struct {
	Resolver Resolver
	Name     string
}

// Load resolves, compiles and executes the module, then reads its exported
// table.
func (l LuaLoader) Load(ctx context.Context) (*Module, error) {
	if l.Resolver == nil {
		return nil, ErrLoaderMissing
	}

	src, err := l.Resolver.Resolve(ctx, l.Name)
	if err != nil {
		return nil, &LoadError{Stage: "resolve", Module: l.Name, Err: err}
	}
	return loadLuaModule(ctx, l.Name, string(src))
}

func loadLuaModule(ctx context.Context, name, src string) (*Module, error) {
	rt := newLuaRuntime()

	exported, err := rt.exec(ctx, src)
	if err != nil {
		rt.close()
		if cerr := ctx.Err(); cerr != nil {
			return nil, &LoadError{Stage: "compile", Module: name, Err: fmt.Errorf("%w: %v", cerr, err)}
		}
		return nil, &LoadError{Stage: "compile", Module: name, Err: fmt.Errorf("%w: %v", ErrModuleInvalid, err)}
	}

	tbl, ok := exported.(*lua.LTable)
	if !ok {
		rt.close()
		return nil, &LoadError{
			Stage:  "export",
			Module: name,
			Err:    fmt.Errorf("%w: script returned %s, want table", ErrModuleInvalid, exported.Type()),
		}
	}

	mod := &Module{
		Name:       name,
		Formatters: make(map[string]backend.Formatter),
		Themes:     make(map[string]backend.Theme),
		close:      rt.close,
	}
	if n, ok := tbl.RawGetString("name").(lua.LString); ok && n != "" {
		mod.Name = string(n)
	}

	if fmts, ok := tbl.RawGetString("formatters").(*lua.LTable); ok {
		fmts.ForEach(func(k, v lua.LValue) {
			fn, ok := v.(*lua.LFunction)
			if !ok || k.Type() != lua.LTString {
				return
			}
			mod.Formatters[k.String()] = &luaFormatter{rt: rt, fn: fn}
		})
	}

	if themes, ok := tbl.RawGetString("themes").(*lua.LTable); ok {
		themes.ForEach(func(k, v lua.LValue) {
			t, ok := v.(*lua.LTable)
			if !ok || k.Type() != lua.LTString {
				return
			}
			mod.Themes[k.String()] = backend.Theme{
				Name:       k.String(),
				Foreground: field(t, "foreground"),
				Background: field(t, "background"),
				LineNumber: field(t, "lineNumber"),
				Error:      field(t, "error"),
				Warning:    field(t, "warning"),
				Info:       field(t, "info"),
				Hint:       field(t, "hint"),
			}
		})
	}

	return mod, nil
}

func field(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// luaRuntime wraps an LState. gopher-lua states are not goroutine-safe, so
// every use goes through mu.
type luaRuntime struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func newLuaRuntime() *luaRuntime {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	// io, os, debug and package stay closed.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// The base library still reaches the filesystem through these.
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &luaRuntime{L: L}
}

// exec runs a chunk and returns its first return value.
func (r *luaRuntime) exec(ctx context.Context, src string) (ret lua.LValue, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return lua.LNil, ErrStateClosed
	}

	defer func() {
		if p := recover(); p != nil {
			ret, err = lua.LNil, fmt.Errorf("lua panic: %v", p)
		}
	}()

	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	fn, err := r.L.LoadString(src)
	if err != nil {
		return lua.LNil, err
	}
	r.L.Push(fn)
	if err := r.L.PCall(0, 1, nil); err != nil {
		return lua.LNil, err
	}
	ret = r.L.Get(-1)
	r.L.Pop(1)
	return ret, nil
}

// call invokes fn with one string argument and returns up to two results.
func (r *luaRuntime) call(ctx context.Context, fn *lua.LFunction, arg string) (first, second lua.LValue, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return lua.LNil, lua.LNil, ErrStateClosed
	}

	defer func() {
		if p := recover(); p != nil {
			first, second, err = lua.LNil, lua.LNil, fmt.Errorf("lua panic: %v", p)
		}
	}()

	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, lua.LString(arg)); err != nil {
		return lua.LNil, lua.LNil, err
	}
	first = r.L.Get(-2)
	second = r.L.Get(-1)
	r.L.Pop(2)
	return first, second, nil
}

func (r *luaRuntime) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		r.L.Close()
	}
	return nil
}

// luaFormatter calls a Lua function(text) -> text[, err].
type luaFormatter struct {
	rt *luaRuntime
	fn *lua.LFunction
}

func (f *luaFormatter) Format(ctx context.Context, text string) (string, error) {
	out, msg, err := f.rt.call(ctx, f.fn, text)
	if err != nil {
		return "", err
	}
	if s, ok := msg.(lua.LString); ok && out == lua.LNil {
		return "", fmt.Errorf("formatter: %s", string(s))
	}
	s, ok := out.(lua.LString)
	if !ok {
		return "", fmt.Errorf("formatter returned %s, want string", out.Type())
	}
	return string(s), nil
}
