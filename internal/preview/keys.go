package preview

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/editorbridge/internal/backend"
)

// lineSource exposes single lines of a backend's buffer.
type lineSource interface {
	Line(n int) string
}

// HandleKey translates a key event into backend input. It reports whether
// the event was consumed.
func HandleKey(ev *tcell.EventKey, b backend.Backend) bool {
	in := b.Input()
	pos := in.Cursor()

	switch ev.Key() {
	case tcell.KeyRune:
		in.Type(string(ev.Rune()))
	case tcell.KeyEnter:
		if ev.Modifiers()&tcell.ModCtrl != 0 {
			in.Press(backend.ChordSubmit)
			return true
		}
		in.Type("\n")
	case tcell.KeyCtrlJ:
		in.Press(backend.ChordSubmit)
	case tcell.KeyTab:
		in.Type("\t")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		in.Backspace()
	case tcell.KeyCtrlS:
		in.Press(backend.ChordSave)
	case tcell.KeyCtrlA:
		in.Press(backend.ChordSelectAll)
	case tcell.KeyLeft:
		if pos.Column > 1 {
			in.MoveCursor(pos.Line, pos.Column-1)
		} else if pos.Line > 1 {
			in.MoveCursor(pos.Line-1, lineEnd(b, pos.Line-1))
		}
	case tcell.KeyRight:
		if pos.Column < lineEnd(b, pos.Line) {
			in.MoveCursor(pos.Line, pos.Column+1)
		} else if pos.Line < b.LineCount() {
			in.MoveCursor(pos.Line+1, 1)
		}
	case tcell.KeyUp:
		in.MoveCursor(pos.Line-1, pos.Column)
	case tcell.KeyDown:
		in.MoveCursor(pos.Line+1, pos.Column)
	case tcell.KeyHome:
		in.MoveCursor(pos.Line, 1)
	case tcell.KeyEnd:
		in.MoveCursor(pos.Line, lineEnd(b, pos.Line))
	default:
		return false
	}
	return true
}

// lineEnd returns the column just past the last grapheme of line.
func lineEnd(b backend.Backend, line int) int {
	src, ok := b.(lineSource)
	if !ok {
		return 1 << 30
	}
	return uniseg.GraphemeClusterCount(src.Line(line)) + 1
}
