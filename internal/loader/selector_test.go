package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/config"
)

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{nil, ReasonNone},
		{ErrLoaderMissing, ReasonLoaderMissing},
		{&LoadError{Stage: "resolve", Err: fmt.Errorf("%w: 404", ErrModuleUnavailable)}, ReasonCDNUnavailable},
		{errors.New("dial tcp: refused"), ReasonCDNUnavailable},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ReasonLoadTimeout},
		{&LoadError{Stage: "compile", Err: fmt.Errorf("%w: syntax", ErrModuleInvalid)}, ReasonModuleInvalid},
		{&LoadError{Stage: "construct", Err: fmt.Errorf("%w: nope", ErrConstruct)}, ReasonConstructFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReasonFor(tt.err), "ReasonFor(%v)", tt.err)
	}
}

func TestSelector_PrimaryOnSuccess(t *testing.T) {
	for i := 0; i < 3; i++ {
		s := NewSelector(BuiltinLoader{})
		assert.Equal(t, StateUninitialized, s.State())

		res := s.Select(context.Background(), config.Default(), "abc")
		require.NotNil(t, res.Backend)
		assert.Equal(t, backend.KindPrimary, res.Engine)
		assert.Equal(t, ReasonNone, res.Reason)
		assert.Equal(t, StatePrimaryActive, s.State())
		assert.Equal(t, "abc", res.Backend.Value())
		require.NoError(t, s.Close())
	}
}

func TestSelector_LoaderMissing(t *testing.T) {
	for i := 0; i < 3; i++ {
		s := NewSelector(nil)
		res := s.Select(context.Background(), config.Default(), "abc")

		require.NotNil(t, res.Backend)
		assert.Equal(t, backend.KindFallback, res.Engine)
		assert.Equal(t, ReasonLoaderMissing, res.Reason)
		assert.Equal(t, StateFallbackActive, s.State())
		assert.Equal(t, "abc", res.Backend.Value())
	}

	res := NewSelector(LuaLoader{Name: "x"}).Select(context.Background(), config.Default(), "")
	assert.Equal(t, ReasonLoaderMissing, res.Reason)
}

func TestSelector_ModuleUnavailable(t *testing.T) {
	s := NewSelector(LuaLoader{Resolver: DirResolver{Dir: t.TempDir()}, Name: "missing"})
	res := s.Select(context.Background(), config.Default(), "")

	assert.Equal(t, backend.KindFallback, res.Engine)
	assert.Equal(t, ReasonCDNUnavailable, res.Reason)
	var le *LoadError
	require.ErrorAs(t, res.Err, &le)
	assert.Equal(t, "resolve", le.Stage)
}

func TestSelector_LoadTimeout(t *testing.T) {
	slow := LoaderFunc(func(ctx context.Context) (*Module, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := config.Default()
	cfg.LoadTimeout = 20 * time.Millisecond

	res := NewSelector(slow).Select(context.Background(), cfg, "")
	assert.Equal(t, backend.KindFallback, res.Engine)
	assert.Equal(t, ReasonLoadTimeout, res.Reason)
}

func TestSelector_ProbingState(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gated := LoaderFunc(func(ctx context.Context) (*Module, error) {
		close(entered)
		<-release
		return BuiltinLoader{}.Load(ctx)
	})
	s := NewSelector(gated)

	done := make(chan Result, 1)
	go func() { done <- s.Select(context.Background(), config.Default(), "") }()

	<-entered
	assert.Equal(t, StateProbingPrimary, s.State())
	close(release)

	res := <-done
	assert.Equal(t, backend.KindPrimary, res.Engine)
	assert.Equal(t, StatePrimaryActive, s.State())
	require.NoError(t, s.Close())
}

func TestSelector_ConstructFailures(t *testing.T) {
	tests := []struct {
		name      string
		construct Constructor
	}{
		{"error", func(config.Config, string, *Module) (backend.Backend, error) {
			return nil, errors.New("no surface")
		}},
		{"panic", func(config.Config, string, *Module) (backend.Backend, error) {
			panic("boom")
		}},
		{"nil backend", func(config.Config, string, *Module) (backend.Backend, error) {
			return nil, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(BuiltinLoader{}, WithConstructor(tt.construct))
			res := s.Select(context.Background(), config.Default(), "keep")

			require.NotNil(t, res.Backend)
			assert.Equal(t, backend.KindFallback, res.Engine)
			assert.Equal(t, ReasonConstructFailed, res.Reason)
			assert.Equal(t, "keep", res.Backend.Value())
		})
	}
}

func TestSelector_LoaderPanicAndNilModule(t *testing.T) {
	panicky := LoaderFunc(func(context.Context) (*Module, error) { panic("loader") })
	res := NewSelector(panicky).Select(context.Background(), config.Default(), "")
	assert.Equal(t, ReasonCDNUnavailable, res.Reason)

	empty := LoaderFunc(func(context.Context) (*Module, error) { return nil, nil })
	res = NewSelector(empty).Select(context.Background(), config.Default(), "")
	assert.Equal(t, ReasonModuleInvalid, res.Reason)
}

func TestSelector_SelectsOnce(t *testing.T) {
	calls := 0
	l := LoaderFunc(func(ctx context.Context) (*Module, error) {
		calls++
		return BuiltinLoader{}.Load(ctx)
	})
	s := NewSelector(l)

	first := s.Select(context.Background(), config.Default(), "one")
	second := s.Select(context.Background(), config.Default(), "two")

	assert.Equal(t, 1, calls)
	assert.Same(t, first.Backend, second.Backend)
	assert.Equal(t, "one", second.Backend.Value())
}
