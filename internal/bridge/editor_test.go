package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/loader"
	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/transport"
)

type harness struct {
	editor   *Editor
	recorder *transport.Recorder
}

func newHarness(t *testing.T, cfg config.Config, content string, l loader.Loader) *harness {
	t.Helper()
	rec := transport.NewRecorder("test")
	e, err := Bootstrap(context.Background(), Options{
		Config:    cfg,
		Content:   content,
		Loader:    l,
		Transport: transport.NewAdapter([]transport.Channel{rec}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return &harness{editor: e, recorder: rec}
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Debounce = 10 * time.Millisecond
	return cfg
}

// settle waits long enough for any armed debounce timer to fire.
func settle(cfg config.Config) {
	time.Sleep(cfg.Debounce + 50*time.Millisecond)
}

func TestReady_Primary(t *testing.T) {
	cfg := fastConfig()
	cfg.Language = "json"
	cfg.DocumentURI = "file:///doc.json"
	h := newHarness(t, cfg, "{\n}", loader.BuiltinLoader{})

	ready := h.recorder.Events(transport.EventReady)
	require.Len(t, ready, 1)
	p := ready[0].Payload
	assert.Equal(t, "primary", p.Get("engine").String())
	assert.False(t, p.Get("reason").Exists())
	assert.Equal(t, "json", p.Get("language").String())
	assert.Equal(t, int64(2), p.Get("line_count").Int())
	assert.Equal(t, "file:///doc.json", p.Get("document_uri").String())
	assert.Equal(t, backend.KindPrimary, h.editor.Engine())
}

func TestReady_FallbackIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		h := newHarness(t, fastConfig(), "", nil)

		ready := h.recorder.Events(transport.EventReady)
		require.Len(t, ready, 1)
		assert.Equal(t, "fallback", ready[0].Payload.Get("engine").String())
		assert.Equal(t, "loader_missing", ready[0].Payload.Get("reason").String())
		assert.Equal(t, "plaintext", ready[0].Payload.Get("language").String())
		assert.Equal(t, int64(1), ready[0].Payload.Get("line_count").Int())
		assert.Equal(t, loader.ReasonLoaderMissing, h.editor.Reason())
	}
}

func TestReady_FallbackOnUnreachableModule(t *testing.T) {
	l := loader.LuaLoader{Resolver: loader.DirResolver{Dir: t.TempDir()}, Name: "monaco"}
	h := newHarness(t, fastConfig(), "", l)

	ready := h.recorder.Events(transport.EventReady)
	require.Len(t, ready, 1)
	assert.Equal(t, "cdn_unavailable", ready[0].Payload.Get("reason").String())
}

func TestCoalescing_RapidEditsFireOnce(t *testing.T) {
	cfg := config.Default()
	cfg.Debounce = 40 * time.Millisecond
	h := newHarness(t, cfg, "", loader.BuiltinLoader{})

	in := h.editor.Backend().Input()
	for _, r := range "hello" {
		in.Type(string(r))
	}

	require.Eventually(t, func() bool {
		return h.recorder.Count(transport.EventChange) == 1
	}, time.Second, 5*time.Millisecond)
	settle(cfg)

	changes := h.recorder.Events(transport.EventChange)
	require.Len(t, changes, 1)
	assert.Equal(t, "hello", changes[0].Payload.Get("value").String())
	assert.Equal(t, int64(1), changes[0].Payload.Get("line_count").Int())
}

func TestSetValue_SilentNeverNotifies(t *testing.T) {
	for name, l := range map[string]loader.Loader{"primary": loader.BuiltinLoader{}, "fallback": nil} {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			h := newHarness(t, cfg, "", l)

			h.editor.SetValue("quiet", true)
			settle(cfg)
			assert.Zero(t, h.recorder.Count(transport.EventChange))
			assert.Equal(t, "quiet", h.editor.Value())

			h.editor.SetValue("loud\ntext", false)
			require.Eventually(t, func() bool {
				return h.recorder.Count(transport.EventChange) == 1
			}, time.Second, 5*time.Millisecond)
			change := h.recorder.Events(transport.EventChange)[0]
			assert.Equal(t, "loud\ntext", change.Payload.Get("value").String())
			assert.Equal(t, int64(2), change.Payload.Get("line_count").Int())
		})
	}
}

func TestInsertText_ZeroDebounce(t *testing.T) {
	cfg := config.FromMap(map[string]any{"debounceMs": 0, "emitOnChange": true})
	h := newHarness(t, cfg, "a", loader.BuiltinLoader{})

	h.editor.InsertText("b")

	require.Eventually(t, func() bool {
		return h.recorder.Count(transport.EventChange) >= 1
	}, time.Second, 2*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	changes := h.recorder.Events(transport.EventChange)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Payload.Get("value").String(), "b")
	assert.Equal(t, "ba", changes[0].Payload.Get("value").String())
	assert.Equal(t, int64(1), changes[0].Payload.Get("line_count").Int())
}

func TestEmitOnChangeDisabled(t *testing.T) {
	cfg := fastConfig()
	cfg.EmitOnChange = false
	h := newHarness(t, cfg, "", loader.BuiltinLoader{})

	in := h.editor.Backend().Input()
	in.Type("abc")
	h.editor.SetValue("x", false)
	h.editor.InsertText("y")
	settle(cfg)
	assert.Zero(t, h.recorder.Count(transport.EventChange))

	assert.True(t, in.Press(backend.ChordSave))
	assert.True(t, in.Press(backend.ChordSubmit))

	save := h.recorder.Events(transport.EventSave)
	require.Len(t, save, 1)
	assert.Equal(t, "yx", save[0].Payload.Get("value").String())
	assert.Equal(t, 1, h.recorder.Count(transport.EventSubmit))
}

func TestSubmitChordRequiresConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.SubmitOnCtrlEnter = false
	h := newHarness(t, cfg, "body", nil)

	assert.False(t, h.editor.Backend().Input().Press(backend.ChordSubmit))
	assert.Zero(t, h.recorder.Count(transport.EventSubmit))
}

func TestFocusBlurAndCursorEvents(t *testing.T) {
	h := newHarness(t, fastConfig(), "abc\ndef", loader.BuiltinLoader{})

	h.editor.Focus()
	h.editor.Backend().Input().MoveCursor(2, 3)
	h.editor.Blur()

	assert.Equal(t, 1, h.recorder.Count(transport.EventFocus))
	assert.Equal(t, 1, h.recorder.Count(transport.EventBlur))
	cursor := h.recorder.Events(transport.EventCursorChange)
	require.NotEmpty(t, cursor)
	last := cursor[len(cursor)-1].Payload
	assert.Equal(t, int64(2), last.Get("line").Int())
	assert.Equal(t, int64(3), last.Get("column").Int())
	assert.JSONEq(t, `{}`, h.recorder.Events(transport.EventFocus)[0].Payload.Raw)
}

func TestSetMarkers(t *testing.T) {
	h := newHarness(t, fastConfig(), "a\nb\nc", loader.BuiltinLoader{})
	h.editor.SetMarkers([]map[string]any{
		{"line": 2, "message": "bad", "severity": "ERROR"},
		{"start_line": 3},
	})

	markers := h.editor.Backend().Markers()
	require.Len(t, markers, 2)
	assert.Equal(t, 2, markers[0].StartLine)
	assert.Equal(t, "bad", markers[0].Message)

	h.editor.SetMarkers(nil)
	assert.Empty(t, h.editor.Backend().Markers())
}

func TestFallbackDegradedOperations(t *testing.T) {
	cfg := fastConfig()
	cfg.Language = "json"
	h := newHarness(t, cfg, `{"a":1}`, nil)

	h.editor.SetMarkers([]map[string]any{{"line": 1}})
	h.editor.RevealLine(3)
	h.editor.SetTheme("vs")
	assert.False(t, h.editor.FormatDocument(context.Background()))
	assert.Empty(t, h.editor.Backend().Markers())
	assert.Equal(t, `{"a":1}`, h.editor.Value())
	settle(cfg)
	assert.Zero(t, h.recorder.Count(transport.EventChange))
}

func TestSetOptionsFontSizeOnFallback(t *testing.T) {
	h := newHarness(t, fastConfig(), "unchanged", nil)

	h.editor.SetOptions(map[string]any{"fontSize": 20})

	assert.Equal(t, 20, h.editor.Backend().Options().FontSize)
	assert.Equal(t, "unchanged", h.editor.Value())
}

func TestFormatDocument(t *testing.T) {
	cfg := fastConfig()
	cfg.Language = "json"
	h := newHarness(t, cfg, `{"a":1}`, loader.BuiltinLoader{})

	want, err := backend.FormatJSON(`{"a":1}`)
	require.NoError(t, err)

	assert.True(t, h.editor.FormatDocument(context.Background()))
	assert.Equal(t, want, h.editor.Value())
	assert.Contains(t, h.editor.Value(), "\n  \"a\": 1")
	require.Eventually(t, func() bool {
		return h.recorder.Count(transport.EventChange) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, h.editor.FormatDocument(context.Background()))
}

func TestFormatDocument_Concurrent(t *testing.T) {
	cfg := fastConfig()
	cfg.Language = "json"
	h := newHarness(t, cfg, `[1,2,3]`, loader.BuiltinLoader{})

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.editor.FormatDocument(context.Background())
		}(i)
	}
	wg.Wait()

	formatted, err := backend.FormatJSON(`[1,2,3]`)
	require.NoError(t, err)
	assert.Equal(t, formatted, h.editor.Value())
	assert.Contains(t, results, true)
}

func TestSafeBeforeReadyAndAfterClose(t *testing.T) {
	gate := make(chan struct{})
	slow := loader.LoaderFunc(func(ctx context.Context) (*loader.Module, error) {
		<-gate
		return loader.BuiltinLoader{}.Load(ctx)
	})
	rec := transport.NewRecorder("test")
	e := Start(context.Background(), Options{
		Config:    fastConfig(),
		Content:   "init",
		Loader:    slow,
		Transport: transport.NewAdapter([]transport.Channel{rec}),
	})

	assert.Equal(t, "", e.Value())
	assert.NotPanics(t, func() {
		e.SetValue("x", false)
		e.InsertText("y")
		e.Focus()
		e.Blur()
		e.SelectAll()
		e.RevealLine(1)
		e.SetMarkers([]map[string]any{{"line": 1}})
		e.SetOptions(map[string]any{"fontSize": 30})
		e.SetTheme("vs")
	})
	assert.False(t, e.FormatDocument(context.Background()))
	assert.Nil(t, e.Backend())

	close(gate)
	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, "init", e.Value())

	e.SetValue("pending", false)
	require.NoError(t, e.Close())
	settle(e.Config())

	assert.Zero(t, rec.Count(transport.EventChange))
	assert.Equal(t, "", e.Value())
	assert.NotPanics(t, func() { e.InsertText("z") })
	assert.NoError(t, e.Close())
}

func TestCloseBeforeReady(t *testing.T) {
	gate := make(chan struct{})
	slow := loader.LoaderFunc(func(ctx context.Context) (*loader.Module, error) {
		<-gate
		return loader.BuiltinLoader{}.Load(ctx)
	})
	rec := transport.NewRecorder("test")
	e := Start(context.Background(), Options{
		Config:    fastConfig(),
		Loader:    slow,
		Transport: transport.NewAdapter([]transport.Channel{rec}),
	})

	require.NoError(t, e.Close())
	close(gate)

	assert.ErrorIs(t, e.Wait(context.Background()), ErrClosed)
	assert.Zero(t, rec.Count(transport.EventReady))
}

func TestNoTransportIsSafe(t *testing.T) {
	e, err := Bootstrap(context.Background(), Options{Config: fastConfig(), Content: "x"})
	require.NoError(t, err)
	defer e.Close()

	assert.NotPanics(t, func() {
		e.SetValue("y", false)
		e.Backend().Input().Press(backend.ChordSave)
		settle(e.Config())
	})
}

func TestStart_DefaultsToProcessLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logging.L()
	logging.Set(zap.New(core))
	t.Cleanup(func() { logging.Set(prev) })

	newHarness(t, fastConfig(), "", nil)

	ready := logs.FilterMessage("editor ready").All()
	require.Len(t, ready, 1)
	assert.Equal(t, "bridge", ready[0].LoggerName)
	assert.Equal(t, "fallback", ready[0].ContextMap()["engine"])
}
