package backend

import (
	"sync"

	"github.com/dshills/editorbridge/internal/config"
)

// surface holds the state and behavior both backends share: the buffer,
// focus, keybindings and the listener. It implements Input.
type surface struct {
	mu       sync.Mutex
	doc      document
	cfg      config.Config
	focused  bool
	closed   bool
	lastPos  Position
	listener Listener
	commands map[Chord]func()
}

func newSurface(cfg config.Config, content string) *surface {
	s := &surface{
		cfg:      cfg,
		commands: make(map[Chord]func()),
		lastPos:  Position{Line: 1, Column: 1},
	}
	s.doc.setText(content)
	return s
}

// event is a listener notification collected under the lock and delivered
// after it is released.
type event func(Listener)

func (s *surface) deliver(l Listener, events []event) {
	if l == nil {
		return
	}
	for _, ev := range events {
		ev(l)
	}
}

// cursorEventLocked returns a CursorMoved notification when the cursor has
// moved since the last one.
func (s *surface) cursorEventLocked() []event {
	pos := s.doc.position()
	if pos == s.lastPos {
		return nil
	}
	s.lastPos = pos
	return []event{func(l Listener) { l.CursorMoved(pos) }}
}

func (s *surface) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.text
}

func (s *surface) SetValue(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.doc.setText(text)
	events := s.cursorEventLocked()
	l := s.listener
	s.mu.Unlock()
	s.deliver(l, events)
}

func (s *surface) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.lineCount()
}

func (s *surface) Focus() {
	s.SetFocused(true)
}

func (s *surface) Blur() {
	s.SetFocused(false)
}

func (s *surface) SelectAll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.doc.selectAll()
	events := s.cursorEventLocked()
	l := s.listener
	s.mu.Unlock()
	s.deliver(l, events)
}

func (s *surface) InsertText(text string) bool {
	s.mu.Lock()
	if s.closed || s.cfg.ReadOnly {
		s.mu.Unlock()
		return false
	}
	s.doc.replaceSelection(text)
	events := s.cursorEventLocked()
	l := s.listener
	s.mu.Unlock()
	s.deliver(l, events)
	return true
}

func (s *surface) Options() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *surface) AddCommand(chord Chord, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.commands, chord)
		return
	}
	s.commands[chord] = fn
}

func (s *surface) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *surface) Input() Input {
	return s
}

func (s *surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listener = nil
	s.commands = make(map[Chord]func())
	return nil
}

// Input implementation.

func (s *surface) Type(text string) {
	s.userEdit(func(d *document) bool {
		d.replaceSelection(text)
		return true
	})
}

func (s *surface) Backspace() {
	s.userEdit(func(d *document) bool {
		return d.deleteBackward()
	})
}

func (s *surface) userEdit(edit func(*document) bool) {
	s.mu.Lock()
	if s.closed || s.cfg.ReadOnly {
		s.mu.Unlock()
		return
	}
	if !edit(&s.doc) {
		s.mu.Unlock()
		return
	}
	events := append([]event{func(l Listener) { l.ContentChanged() }}, s.cursorEventLocked()...)
	l := s.listener
	s.mu.Unlock()
	s.deliver(l, events)
}

func (s *surface) MoveCursor(line, column int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.doc.moveTo(Position{Line: line, Column: column})
	events := s.cursorEventLocked()
	l := s.listener
	s.mu.Unlock()
	s.deliver(l, events)
}

func (s *surface) Press(chord Chord) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn, ok := s.commands[chord]
	s.mu.Unlock()

	if ok {
		fn()
		return true
	}
	if chord == ChordSelectAll {
		s.SelectAll()
		return true
	}
	return false
}

func (s *surface) SetFocused(focused bool) {
	s.mu.Lock()
	if s.closed || s.focused == focused {
		s.mu.Unlock()
		return
	}
	s.focused = focused
	l := s.listener
	s.mu.Unlock()
	s.deliver(l, []event{func(l Listener) { l.FocusChanged(focused) }})
}

func (s *surface) Cursor() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.position()
}

func (s *surface) Selection() (Position, Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.selection()
}

// Focused reports whether the surface has input focus.
func (s *surface) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Line returns line n (1-based) without its newline.
func (s *surface) Line(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.line(n)
}
