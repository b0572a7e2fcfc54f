package backend

import (
	"context"

	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/marker"
)

// Plain is the fallback backend: a direct-manipulation text surface.
// Markers, reveal, formatting and themes are no-ops; of the live options
// only readOnly, wordWrap, fontSize and fontFamily are honored.
type Plain struct {
	*surface
}

var _ Backend = (*Plain)(nil)

// NewPlain creates a fallback backend. It cannot fail.
func NewPlain(cfg config.Config, content string) *Plain {
	return &Plain{surface: newSurface(cfg, content)}
}

func (p *Plain) Kind() Kind { return KindFallback }

// RevealLine is a no-op.
func (p *Plain) RevealLine(int) {}

// SetMarkers is a no-op.
func (p *Plain) SetMarkers([]marker.Marker) {}

// Markers always returns nil.
func (p *Plain) Markers() []marker.Marker { return nil }

// Format never changes the buffer.
func (p *Plain) Format(context.Context) (bool, error) { return false, nil }

// SetTheme is a no-op.
func (p *Plain) SetTheme(string) {}

// ApplyOptions merges the basic option subset.
func (p *Plain) ApplyOptions(opts config.Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.cfg = p.cfg.ApplyBasic(opts)
}
