package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/marker"
)

// RichOptions supplies the capabilities a loaded module contributes.
type RichOptions struct {
	// Formatters by language id. Matched case-insensitively.
	Formatters map[string]Formatter

	// Themes by name, merged over BuiltinThemes.
	Themes map[string]Theme
}

// Rich is the primary backend.
type Rich struct {
	*surface

	markers    []marker.Marker
	topLine    int
	theme      string
	themes     map[string]Theme
	formatters map[string]Formatter
	extra      map[string]any
}

var _ Backend = (*Rich)(nil)

// NewRich creates the primary backend.
func NewRich(cfg config.Config, content string, opts RichOptions) (*Rich, error) {
	formatters := make(map[string]Formatter, len(opts.Formatters))
	for lang, f := range opts.Formatters {
		if f == nil {
			return nil, fmt.Errorf("%w for language %q", ErrInvalidFormatter, lang)
		}
		formatters[strings.ToLower(lang)] = f
	}

	themes := BuiltinThemes()
	for name, th := range opts.Themes {
		th.Name = name
		themes[name] = th
	}

	return &Rich{
		surface:    newSurface(cfg, content),
		topLine:    1,
		theme:      cfg.Theme,
		themes:     themes,
		formatters: formatters,
		extra:      make(map[string]any),
	}, nil
}

func (r *Rich) Kind() Kind { return KindPrimary }

// RevealLine scrolls so that line is the top visible line. Out-of-range
// lines are clamped.
func (r *Rich) RevealLine(line int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if n := r.doc.lineCount(); line > n {
		line = n
	}
	if line < 1 {
		line = 1
	}
	r.topLine = line
}

// TopLine returns the line most recently revealed.
func (r *Rich) TopLine() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topLine
}

// SetMarkers replaces the whole marker set.
func (r *Rich) SetMarkers(markers []marker.Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.markers = append([]marker.Marker(nil), markers...)
}

// Markers returns a copy of the active marker set.
func (r *Rich) Markers() []marker.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]marker.Marker(nil), r.markers...)
}

// Format runs the formatter registered for the current language. It
// reports false when there is no formatter, the buffer is read-only, the
// output is identical, or the buffer changed while the formatter ran.
func (r *Rich) Format(ctx context.Context) (bool, error) {
	r.mu.Lock()
	if r.closed || r.cfg.ReadOnly {
		r.mu.Unlock()
		return false, nil
	}
	f, ok := r.formatters[strings.ToLower(r.cfg.Language)]
	before := r.doc.text
	r.mu.Unlock()

	if !ok {
		return false, nil
	}

	after, err := f.Format(ctx, before)
	if err != nil {
		return false, err
	}
	if after == before {
		return false, nil
	}

	r.mu.Lock()
	if r.closed || r.doc.text != before {
		r.mu.Unlock()
		return false, nil
	}
	pos := r.doc.position()
	r.doc.text = after
	r.doc.moveTo(pos)
	events := r.cursorEventLocked()
	l := r.listener
	r.mu.Unlock()
	r.deliver(l, events)
	return true, nil
}

// ApplyOptions merges every recognized option and keeps unrecognized keys
// as raw values.
func (r *Rich) ApplyOptions(opts config.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.cfg = r.cfg.Apply(opts)
	if opts.Theme != nil {
		r.theme = *opts.Theme
	}
	for k, v := range opts.Raw {
		r.extra[k] = v
	}
}

// option returns a raw option value passed through ApplyOptions.
func (r *Rich) option(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.extra[key]
	return v, ok
}

// SetTheme switches the theme by name. Empty names are ignored.
func (r *Rich) SetTheme(name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.theme = name
	r.cfg.Theme = name
}

// Theme returns the active theme. Unknown names resolve to the default
// theme's colors.
func (r *Rich) Theme() Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	if th, ok := r.themes[r.theme]; ok {
		return th
	}
	th := r.themes[config.DefaultTheme]
	th.Name = r.theme
	return th
}

