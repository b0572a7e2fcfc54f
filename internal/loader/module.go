package loader

import (
	"context"

	"github.com/dshills/editorbridge/internal/backend"
)

// Module is what a loader contributes to the rich backend.
type Module struct {
	Name       string
	Formatters map[string]backend.Formatter
	Themes     map[string]backend.Theme

	close func() error
}

// Close releases resources held by the module.
func (m *Module) Close() error {
	if m == nil || m.close == nil {
		return nil
	}
	return m.close()
}

// Loader loads the primary backend's module.
type Loader interface {
	Load(ctx context.Context) (*Module, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Module, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (*Module, error) {
	return f(ctx)
}

// BuiltinLoader provides the module compiled into the binary: a JSON
// formatter and the builtin themes.
type BuiltinLoader struct{}

// Load returns the builtin module.
func (BuiltinLoader) Load(ctx context.Context) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Module{
		Name: "builtin",
		Formatters: map[string]backend.Formatter{
			"json": backend.JSONFormatter,
		},
	}, nil
}
