package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/config"
)

const extrasModule = `
return {
  name = "extras",
  formatters = {
    text = function(text)
      return (text:gsub("[ \t]+\n", "\n"))
    end,
    strict = function(text)
      return nil, "strict mode rejects input"
    end,
    broken = function(text)
      return 42
    end,
  },
  themes = {
    solarized = { foreground = "#839496", background = "#002b36", error = "#dc322f" },
  },
}
`

func writeModule(t *testing.T, name, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".lua"), []byte(src), 0o644))
	return dir
}

func TestLuaLoader_Exports(t *testing.T) {
	dir := writeModule(t, "extras", extrasModule)
	mod, err := LuaLoader{Resolver: DirResolver{Dir: dir}, Name: "extras"}.Load(context.Background())
	require.NoError(t, err)
	defer mod.Close()

	assert.Equal(t, "extras", mod.Name)
	require.Contains(t, mod.Formatters, "text")
	assert.Equal(t, "#002b36", mod.Themes["solarized"].Background)
	assert.Equal(t, "#dc322f", mod.Themes["solarized"].Error)

	out, err := mod.Formatters["text"].Format(context.Background(), "a  \nb\t\nc")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc", out)

	_, err = mod.Formatters["strict"].Format(context.Background(), "x")
	assert.ErrorContains(t, err, "strict mode rejects input")

	_, err = mod.Formatters["broken"].Format(context.Background(), "x")
	assert.Error(t, err)
}

func TestLuaLoader_InvalidModules(t *testing.T) {
	tests := map[string]string{
		"syntax":    "return {",
		"non-table": "return 7",
		"runtime":   "error('boom')",
		"sandboxed": "return os.execute('true')",
		"no dofile": "return dofile('/etc/passwd')",
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			dir := writeModule(t, "m", src)
			_, err := LuaLoader{Resolver: DirResolver{Dir: dir}, Name: "m"}.Load(context.Background())
			require.Error(t, err)
			assert.Equal(t, ReasonModuleInvalid, ReasonFor(err))
		})
	}
}

func TestLuaLoader_RunawayModuleTimesOut(t *testing.T) {
	dir := writeModule(t, "m", "while true do end")
	cfg := config.Default()
	cfg.LoadTimeout = 50 * time.Millisecond

	s := NewSelector(LuaLoader{Resolver: DirResolver{Dir: dir}, Name: "m"})
	res := s.Select(context.Background(), cfg, "keep")

	assert.Equal(t, backend.KindFallback, res.Engine)
	assert.Equal(t, ReasonLoadTimeout, res.Reason)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, "keep", res.Backend.Value())
}

func TestLuaLoader_ClosedModule(t *testing.T) {
	dir := writeModule(t, "extras", extrasModule)
	mod, err := LuaLoader{Resolver: DirResolver{Dir: dir}, Name: "extras"}.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mod.Close())

	_, err = mod.Formatters["text"].Format(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStateClosed)
}

func TestSelector_WithLuaModule(t *testing.T) {
	dir := writeModule(t, "extras", extrasModule)
	cfg := config.Default()
	cfg.Language = "text"
	cfg.Theme = "solarized"

	s := NewSelector(LuaLoader{Resolver: DirResolver{Dir: dir}, Name: "extras"})
	res := s.Select(context.Background(), cfg, "x  \ny")
	defer s.Close()

	require.Equal(t, backend.KindPrimary, res.Engine)
	changed, err := res.Backend.Format(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "x\ny", res.Backend.Value())

	rich, ok := res.Backend.(*backend.Rich)
	require.True(t, ok)
	assert.Equal(t, "#002b36", rich.Theme().Background)
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vs/extras.lua" {
			_, _ = w.Write([]byte(extrasModule))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	mod, err := LuaLoader{Resolver: ResolverFor(srv.URL + "/vs/"), Name: "extras"}.Load(context.Background())
	require.NoError(t, err)
	defer mod.Close()
	assert.Equal(t, "extras", mod.Name)

	_, err = LuaLoader{Resolver: ResolverFor(srv.URL), Name: "missing"}.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, ReasonCDNUnavailable, ReasonFor(err))
}

func TestHTTPResolver_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPResolver(url).Resolve(context.Background(), "extras")
	assert.ErrorIs(t, err, ErrModuleUnavailable)
}

func TestResolverFor(t *testing.T) {
	assert.IsType(t, HTTPResolver{}, ResolverFor("https://cdn.example.com/modules"))
	assert.IsType(t, DirResolver{}, ResolverFor("./modules"))
}
