// Package page binds a page text element, such as a textarea, to a bridge
// editor. Element events become backend user input, so change, focus,
// blur, cursor_change, save and submit reach the host the same way they do
// from the terminal preview.
package page

import (
	"strings"
	"sync"

	"github.com/rivo/uniseg"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/bridge"
)

// Element is the part of a page text element the binding drives.
type Element interface {
	Value() string
	SetValue(text string)

	// CaretPrefix returns the element text before the caret.
	CaretPrefix() string

	SetReadOnly(readOnly bool)
}

// Binding forwards element events into an editor's backend and mirrors
// backend state back into the element.
type Binding struct {
	mu     sync.Mutex
	editor *bridge.Editor
	el     Element
}

// Bind connects el to e and copies the current buffer into el.
func Bind(e *bridge.Editor, el Element) *Binding {
	b := &Binding{editor: e, el: el}
	b.Sync()
	return b
}

// Edited handles the element's input event. The element holds the whole
// new text; it replaces the buffer as one user edit.
func (b *Binding) Edited() {
	b.mu.Lock()
	defer b.mu.Unlock()

	be := b.editor.Backend()
	if be == nil {
		return
	}
	text := b.el.Value()
	if text != be.Value() {
		be.SelectAll()
		be.Input().Type(text)
	}
	// Read-only buffers refuse the edit; put the element back.
	if v := be.Value(); v != b.el.Value() {
		b.el.SetValue(v)
	}
	b.moveCaretLocked(be)
}

// CaretMoved handles clicks, selection and navigation keys.
func (b *Binding) CaretMoved() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if be := b.editor.Backend(); be != nil {
		b.moveCaretLocked(be)
	}
}

func (b *Binding) moveCaretLocked(be backend.Backend) {
	pos := Position(b.el.CaretPrefix())
	be.Input().MoveCursor(pos.Line, pos.Column)
}

// Focused reports an element focus or blur event.
func (b *Binding) Focused(focused bool) {
	if be := b.editor.Backend(); be != nil {
		be.Input().SetFocused(focused)
	}
}

// Key handles a keydown event and reports whether it ran a command, in
// which case the page should suppress the key's default action. mod is
// Ctrl on most platforms and Cmd on macOS.
func (b *Binding) Key(key string, mod bool) bool {
	if !mod {
		return false
	}
	be := b.editor.Backend()
	if be == nil {
		return false
	}
	switch key {
	case "s", "S":
		return be.Input().Press(backend.ChordSave)
	case "Enter":
		return be.Input().Press(backend.ChordSubmit)
	}
	return false
}

// Sync copies the buffer and the read-only option into the element. Call
// it after any host call that may have changed either.
func (b *Binding) Sync() {
	b.mu.Lock()
	defer b.mu.Unlock()

	be := b.editor.Backend()
	if be == nil {
		return
	}
	if v := be.Value(); v != b.el.Value() {
		b.el.SetValue(v)
	}
	b.el.SetReadOnly(be.Options().ReadOnly)
}

// Position converts the text before a caret into a 1-based line and
// grapheme column.
func Position(prefix string) backend.Position {
	last := prefix
	if i := strings.LastIndexByte(prefix, '\n'); i >= 0 {
		last = prefix[i+1:]
	}
	return backend.Position{
		Line:   strings.Count(prefix, "\n") + 1,
		Column: uniseg.GraphemeClusterCount(last) + 1,
	}
}
