// Package backend provides the text-editing backends behind the bridge.
//
// Two implementations satisfy Backend: Rich, the primary backend with
// markers, reveal, formatting and themes, and Plain, a minimal fallback
// that keeps the same method set and treats unsupported operations as
// documented no-ops.
//
// Edits arrive from two directions. Programmatic edits (SetValue,
// InsertText, Format) come from the host through the bridge and never
// notify listeners; the bridge reports them itself. User edits arrive
// through Input and notify ContentChanged.
package backend

import (
	"context"

	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/marker"
)

// Kind identifies a backend variant.
type Kind string

const (
	KindPrimary  Kind = "primary"
	KindFallback Kind = "fallback"
)

// Chord names a keybinding.
type Chord string

const (
	// ChordSave is Ctrl/Cmd+S.
	ChordSave Chord = "CtrlCmd+S"
	// ChordSubmit is Ctrl/Cmd+Enter.
	ChordSubmit Chord = "CtrlCmd+Enter"
	// ChordSelectAll is Ctrl/Cmd+A.
	ChordSelectAll Chord = "CtrlCmd+A"
)

// Listener receives backend-native events.
type Listener interface {
	// ContentChanged is called after a user edit.
	ContentChanged()

	// FocusChanged is called when the text surface gains or loses focus.
	FocusChanged(focused bool)

	// CursorMoved is called when the cursor position changes.
	CursorMoved(pos Position)
}

// Backend is the capability set every editing backend provides.
type Backend interface {
	// Kind reports which variant this is.
	Kind() Kind

	// Value returns the whole buffer.
	Value() string

	// SetValue replaces the buffer without notifying listeners.
	SetValue(text string)

	// LineCount returns the number of lines in the buffer.
	LineCount() int

	// Focus and Blur move input focus to and from the text surface.
	Focus()
	Blur()

	// SelectAll selects the whole buffer.
	SelectAll()

	// InsertText replaces the selection, or inserts at the cursor. It
	// reports whether the edit was applied; read-only buffers refuse it.
	InsertText(text string) bool

	// RevealLine scrolls the line into view. No-op on the fallback.
	RevealLine(line int)

	// SetMarkers replaces the whole marker set. No-op on the fallback.
	SetMarkers(markers []marker.Marker)

	// Markers returns the active marker set. Always empty on the fallback.
	Markers() []marker.Marker

	// Format runs the language formatter and reports whether the buffer
	// changed. Always false on the fallback.
	Format(ctx context.Context) (bool, error)

	// ApplyOptions merges live option changes without reconstructing.
	ApplyOptions(opts config.Options)

	// Options returns the effective configuration.
	Options() config.Config

	// SetTheme switches the color theme. No-op on the fallback.
	SetTheme(name string)

	// AddCommand binds fn to a keybinding.
	AddCommand(chord Chord, fn func())

	// Subscribe sets the listener for backend-native events.
	Subscribe(l Listener)

	// Input returns the user-side surface.
	Input() Input

	// Close releases the backend. Later calls are no-ops.
	Close() error
}

// Input is the user-facing side of a backend: what a page would deliver
// from keyboard, pointer and focus events.
type Input interface {
	// Type inserts text as if typed, replacing any selection.
	Type(text string)

	// Backspace deletes the selection or the character before the cursor.
	Backspace()

	// MoveCursor places the cursor, clamped to the document.
	MoveCursor(line, column int)

	// Press runs the command bound to chord and reports whether one was.
	Press(chord Chord) bool

	// SetFocused reports a focus change from the surface.
	SetFocused(focused bool)

	// Cursor returns the cursor position.
	Cursor() Position

	// Selection returns the ordered selection bounds.
	Selection() (start, end Position)
}

// Formatter rewrites document text for one language.
type Formatter interface {
	Format(ctx context.Context, text string) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(ctx context.Context, text string) (string, error)

// Format calls f.
func (f FormatterFunc) Format(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
