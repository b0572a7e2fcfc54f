package backend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/marker"
)

type recordingListener struct {
	mu      sync.Mutex
	changes int
	focus   []bool
	cursors []Position
}

func (l *recordingListener) ContentChanged() {
	l.mu.Lock()
	l.changes++
	l.mu.Unlock()
}

func (l *recordingListener) FocusChanged(focused bool) {
	l.mu.Lock()
	l.focus = append(l.focus, focused)
	l.mu.Unlock()
}

func (l *recordingListener) CursorMoved(pos Position) {
	l.mu.Lock()
	l.cursors = append(l.cursors, pos)
	l.mu.Unlock()
}

func newBackends(t *testing.T, cfg config.Config, content string) map[string]Backend {
	t.Helper()
	rich, err := NewRich(cfg, content, RichOptions{Formatters: map[string]Formatter{"json": JSONFormatter}})
	require.NoError(t, err)
	return map[string]Backend{
		"rich":  rich,
		"plain": NewPlain(cfg, content),
	}
}

func TestBackends_ProgrammaticEditsDoNotNotify(t *testing.T) {
	for name, b := range newBackends(t, config.Default(), "a") {
		t.Run(name, func(t *testing.T) {
			l := &recordingListener{}
			b.Subscribe(l)

			b.SetValue("x\ny")
			assert.True(t, b.InsertText("z"))
			b.SelectAll()

			assert.Equal(t, "zx\ny", b.Value())
			assert.Equal(t, 2, b.LineCount())
			assert.Zero(t, l.changes)
		})
	}
}

func TestBackends_UserEditsNotify(t *testing.T) {
	for name, b := range newBackends(t, config.Default(), "") {
		t.Run(name, func(t *testing.T) {
			l := &recordingListener{}
			b.Subscribe(l)

			in := b.Input()
			in.Type("hi")
			in.Backspace()
			in.MoveCursor(1, 1)
			in.Backspace() // nothing before the cursor

			assert.Equal(t, "h", b.Value())
			assert.Equal(t, 2, l.changes)
			assert.Equal(t, Position{Line: 1, Column: 1}, in.Cursor())
			assert.NotEmpty(t, l.cursors)
		})
	}
}

func TestBackends_ReadOnly(t *testing.T) {
	cfg := config.Default()
	cfg.ReadOnly = true
	for name, b := range newBackends(t, cfg, "fixed") {
		t.Run(name, func(t *testing.T) {
			l := &recordingListener{}
			b.Subscribe(l)

			b.Input().Type("x")
			assert.False(t, b.InsertText("y"))
			assert.Equal(t, "fixed", b.Value())

			b.SetValue("replaced")
			assert.Equal(t, "replaced", b.Value())
			assert.Zero(t, l.changes)
		})
	}
}

func TestBackends_FocusEvents(t *testing.T) {
	for name, b := range newBackends(t, config.Default(), "") {
		t.Run(name, func(t *testing.T) {
			l := &recordingListener{}
			b.Subscribe(l)

			b.Focus()
			b.Focus()
			b.Input().SetFocused(false)
			b.Blur()

			assert.Equal(t, []bool{true, false}, l.focus)
		})
	}
}

func TestBackends_Commands(t *testing.T) {
	for name, b := range newBackends(t, config.Default(), "body") {
		t.Run(name, func(t *testing.T) {
			var saved string
			b.AddCommand(ChordSave, func() { saved = b.Value() })

			assert.True(t, b.Input().Press(ChordSave))
			assert.Equal(t, "body", saved)
			assert.False(t, b.Input().Press(ChordSubmit))

			assert.True(t, b.Input().Press(ChordSelectAll))
			start, end := b.Input().Selection()
			assert.Equal(t, Position{Line: 1, Column: 1}, start)
			assert.Equal(t, Position{Line: 1, Column: 5}, end)
		})
	}
}

func TestBackends_Closed(t *testing.T) {
	for name, b := range newBackends(t, config.Default(), "keep") {
		t.Run(name, func(t *testing.T) {
			l := &recordingListener{}
			b.Subscribe(l)
			require.NoError(t, b.Close())

			b.SetValue("gone")
			b.Input().Type("x")
			b.Focus()
			assert.False(t, b.InsertText("y"))
			assert.False(t, b.Input().Press(ChordSave))

			assert.Equal(t, "keep", b.Value())
			assert.Zero(t, l.changes)
			assert.Empty(t, l.focus)
		})
	}
}

func TestPlain_DegradedOperations(t *testing.T) {
	p := NewPlain(config.Default(), "{\"a\":1}")

	p.SetMarkers([]marker.Marker{{StartLine: 1}})
	assert.Empty(t, p.Markers())

	p.RevealLine(10)
	p.SetTheme("vs")
	assert.Equal(t, config.DefaultTheme, p.Options().Theme)

	changed, err := p.Format(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, KindFallback, p.Kind())
}

func TestPlain_ApplyOptionsBasicSubset(t *testing.T) {
	p := NewPlain(config.Default(), "text")
	p.ApplyOptions(config.ParseOptions(map[string]any{
		"fontSize": 20,
		"tabSize":  8,
		"readOnly": true,
	}))

	opts := p.Options()
	assert.Equal(t, 20, opts.FontSize)
	assert.True(t, opts.ReadOnly)
	assert.Equal(t, config.DefaultTabSize, opts.TabSize)
	assert.Equal(t, "text", p.Value())
}

func TestRich_MarkersReplaceWholeSet(t *testing.T) {
	r, err := NewRich(config.Default(), "a\nb", RichOptions{})
	require.NoError(t, err)

	r.SetMarkers([]marker.Marker{{StartLine: 1}, {StartLine: 2}})
	r.SetMarkers([]marker.Marker{{StartLine: 2, Message: "only"}})

	got := r.Markers()
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Message)

	r.SetMarkers(nil)
	assert.Empty(t, r.Markers())
}

func TestRich_RevealLine(t *testing.T) {
	r, err := NewRich(config.Default(), "1\n2\n3", RichOptions{})
	require.NoError(t, err)

	r.RevealLine(2)
	assert.Equal(t, 2, r.TopLine())
	r.RevealLine(50)
	assert.Equal(t, 3, r.TopLine())
	r.RevealLine(0)
	assert.Equal(t, 1, r.TopLine())
}

func TestRich_Format(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "JSON"
	r, err := NewRich(cfg, `{"a":[1,2]}`, RichOptions{Formatters: map[string]Formatter{"json": JSONFormatter}})
	require.NoError(t, err)

	l := &recordingListener{}
	r.Subscribe(l)

	changed, err := r.Format(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, strings.HasPrefix(r.Value(), "{\n  \"a\": ["), "got %q", r.Value())
	assert.Zero(t, l.changes)

	changed, err = r.Format(context.Background())
	require.NoError(t, err)
	assert.False(t, changed, "already formatted")
}

func TestRich_FormatWithoutFormatter(t *testing.T) {
	r, err := NewRich(config.Default(), "text", RichOptions{})
	require.NoError(t, err)

	changed, err := r.Format(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRich_FormatError(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "json"
	boom := errors.New("boom")
	r, err := NewRich(cfg, "{", RichOptions{Formatters: map[string]Formatter{
		"json": FormatterFunc(func(context.Context, string) (string, error) { return "", boom }),
	}})
	require.NoError(t, err)

	changed, err := r.Format(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, changed)
	assert.Equal(t, "{", r.Value())
}

func TestRich_InvalidFormatter(t *testing.T) {
	_, err := NewRich(config.Default(), "", RichOptions{Formatters: map[string]Formatter{"go": nil}})
	assert.ErrorIs(t, err, ErrInvalidFormatter)
}

func TestRich_OptionsAndTheme(t *testing.T) {
	r, err := NewRich(config.Default(), "", RichOptions{Themes: map[string]Theme{
		"solarized": {Foreground: "#839496", Background: "#002b36"},
	}})
	require.NoError(t, err)

	r.ApplyOptions(config.ParseOptions(map[string]any{"tabSize": 8, "cursorStyle": "line"}))
	assert.Equal(t, 8, r.Options().TabSize)
	v, ok := r.option("cursorStyle")
	assert.True(t, ok)
	assert.Equal(t, "line", v)

	r.SetTheme("solarized")
	assert.Equal(t, "#002b36", r.Theme().Background)
	assert.Equal(t, "solarized", r.Options().Theme)

	r.SetTheme("unknown")
	th := r.Theme()
	assert.Equal(t, "unknown", th.Name)
	assert.Equal(t, BuiltinThemes()[config.DefaultTheme].Background, th.Background)
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(`{"b": {}, "a": []}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{\n  \"b\": {}"))

	_, err = FormatJSON(`{"a":`)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}
