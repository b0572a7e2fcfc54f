package preview

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/editorbridge/internal/backend"
	"github.com/dshills/editorbridge/internal/bridge"
	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/marker"
)

// refreshInterval bounds how stale the screen can get when the buffer is
// changed by the host rather than by keys.
const refreshInterval = 100 * time.Millisecond

// Gutter glyphs by marker severity.
var glyphs = map[marker.Severity]rune{
	marker.SeverityError:   '●',
	marker.SeverityWarning: '▲',
	marker.SeverityInfo:    'i',
	marker.SeverityHint:    '·',
}

type themed interface {
	Theme() backend.Theme
}

type scroller interface {
	TopLine() int
}

// Preview draws an editor on a tcell screen.
//
// Thread-safety: Draw and HandleEvent may be called from different
// goroutines.
type Preview struct {
	mu     sync.Mutex
	screen tcell.Screen
	editor *bridge.Editor
	top    int
}

// New creates a preview. The screen must already be initialized.
func New(screen tcell.Screen, e *bridge.Editor) *Preview {
	return &Preview{screen: screen, editor: e, top: 1}
}

// Run polls screen events until ctx is done or Escape or Ctrl+Q is
// pressed. It initializes and finalizes the screen itself.
func Run(ctx context.Context, screen tcell.Screen, e *bridge.Editor) error {
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableFocus()

	p := New(screen, e)
	p.Draw()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
				return
			case <-ticker.C:
				_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	for {
		ev := screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if p.HandleEvent(ev) {
			return nil
		}
		p.Draw()
	}
}

// HandleEvent applies one screen event and reports whether the preview
// should quit.
func (p *Preview) HandleEvent(ev tcell.Event) (quit bool) {
	b := p.editor.Backend()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlQ {
			return true
		}
		if b != nil {
			HandleKey(ev, b)
		}
	case *tcell.EventFocus:
		if b != nil {
			b.Input().SetFocused(ev.Focused)
		}
	case *tcell.EventResize:
		p.screen.Sync()
	}
	return false
}

// Draw renders the buffer, gutter and status line.
func (p *Preview) Draw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.screen
	s.Clear()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}

	b := p.editor.Backend()
	if b == nil {
		drawText(s, 0, 0, width, "loading...", tcell.StyleDefault)
		s.Show()
		return
	}

	theme := backend.BuiltinThemes()[config.DefaultTheme]
	if t, ok := b.(themed); ok {
		theme = t.Theme()
	}
	base := tcell.StyleDefault.
		Foreground(tcell.GetColor(theme.Foreground)).
		Background(tcell.GetColor(theme.Background))
	numStyle := base.Foreground(tcell.GetColor(theme.LineNumber))

	cfg := b.Options()
	lines := strings.Split(b.Value(), "\n")
	cursor := b.Input().Cursor()
	bodyHeight := height - 1

	p.scrollTo(b, cursor.Line, bodyHeight)

	gutter := 2
	numWidth := 0
	if cfg.LineNumbers {
		numWidth = len(strconv.Itoa(len(lines))) + 1
	}
	textX := gutter + numWidth

	severities := lineSeverities(b.Markers())
	for row := 0; row < bodyHeight; row++ {
		n := p.top + row
		fillRow(s, row, width, base)
		if n > len(lines) {
			continue
		}
		if sev, ok := severities[n]; ok {
			s.SetContent(0, row, glyphs[sev], nil, base.Foreground(severityColor(theme, sev)))
		}
		if cfg.LineNumbers {
			num := fmt.Sprintf("%*d", numWidth-1, n)
			drawText(s, gutter, row, numWidth, num, numStyle)
		}
		drawText(s, textX, row, width-textX, lines[n-1], base)
	}

	if cursor.Line >= p.top && cursor.Line < p.top+bodyHeight {
		s.ShowCursor(textX+cursorX(lines[cursor.Line-1], cursor.Column), cursor.Line-p.top)
	} else {
		s.HideCursor()
	}

	segs := []statusSegment{
		{text: string(b.Kind()), keep: 5},
		{text: cfg.Language, keep: 1},
		{text: fmt.Sprintf("Ln %d, Col %d", cursor.Line, cursor.Column), keep: 2},
	}
	if len(severities) > 0 {
		segs = append(segs, statusSegment{text: fmt.Sprintf("%d markers", len(b.Markers())), keep: 3})
	}
	if cfg.ReadOnly {
		segs = append(segs, statusSegment{text: "read-only", keep: 4})
	}
	statusStyle := base.Reverse(true)
	fillRow(s, height-1, width, statusStyle)
	drawText(s, 0, height-1, width, statusLine(segs, width), statusStyle)

	s.Show()
}

// statusSegment is one " | "-separated field of the status line. Segments
// with a lower keep are dropped first when the line does not fit.
type statusSegment struct {
	text string
	keep int
}

func statusLine(segs []statusSegment, width int) string {
	render := func() string {
		parts := make([]string, 0, len(segs))
		for _, sg := range segs {
			parts = append(parts, sg.text)
		}
		return " " + strings.Join(parts, " | ")
	}
	line := render()
	for len(segs) > 1 && uniseg.StringWidth(line) > width {
		drop := 0
		for i, sg := range segs {
			if sg.keep < segs[drop].keep {
				drop = i
			}
		}
		segs = append(segs[:drop:drop], segs[drop+1:]...)
		line = render()
	}
	return line
}

// scrollTo keeps the cursor visible, honoring the backend's revealed line
// when it changes.
func (p *Preview) scrollTo(b backend.Backend, cursorLine, height int) {
	if sc, ok := b.(scroller); ok {
		if top := sc.TopLine(); top > 0 && top != p.top && (cursorLine < top || cursorLine >= top+height) {
			p.top = top
			return
		}
	}
	if cursorLine < p.top {
		p.top = cursorLine
	}
	if height > 0 && cursorLine >= p.top+height {
		p.top = cursorLine - height + 1
	}
	if p.top < 1 {
		p.top = 1
	}
}

// lineSeverities returns the most severe marker starting on each line.
func lineSeverities(markers []marker.Marker) map[int]marker.Severity {
	out := make(map[int]marker.Severity)
	for _, m := range markers {
		if cur, ok := out[m.StartLine]; !ok || m.Severity < cur {
			out[m.StartLine] = m.Severity
		}
	}
	return out
}

func severityColor(t backend.Theme, sev marker.Severity) tcell.Color {
	switch sev {
	case marker.SeverityError:
		return tcell.GetColor(t.Error)
	case marker.SeverityWarning:
		return tcell.GetColor(t.Warning)
	case marker.SeverityHint:
		return tcell.GetColor(t.Hint)
	default:
		return tcell.GetColor(t.Info)
	}
}

func fillRow(s tcell.Screen, y, width int, style tcell.Style) {
	for x := 0; x < width; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}

// drawText draws text by grapheme cluster and returns the columns used.
func drawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) int {
	used := 0
	state := -1
	for text != "" && used < maxWidth {
		var cluster string
		var w int
		cluster, text, w, state = uniseg.FirstGraphemeClusterInString(text, state)
		if cluster == "\t" {
			cluster, w = " ", 1
		}
		if w == 0 {
			continue
		}
		if used+w > maxWidth {
			break
		}
		runes := []rune(cluster)
		s.SetContent(x+used, y, runes[0], runes[1:], style)
		used += w
	}
	return used
}

// cursorX returns the screen column of a 1-based grapheme column.
func cursorX(line string, column int) int {
	x := 0
	state := -1
	for col := 1; col < column && line != ""; col++ {
		var w int
		_, line, w, state = uniseg.FirstGraphemeClusterInString(line, state)
		if w == 0 {
			w = 1
		}
		x += w
	}
	return x
}
