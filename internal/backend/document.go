package backend

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Position is a 1-based line and column. Columns count grapheme clusters.
type Position struct {
	Line   int
	Column int
}

// document is a single text buffer with a cursor and selection anchor.
// Offsets are byte offsets into text and always sit on grapheme boundaries.
type document struct {
	text   string
	cursor int
	anchor int
}

func (d *document) setText(text string) {
	d.text = text
	d.cursor = 0
	d.anchor = 0
}

func (d *document) lineCount() int {
	return strings.Count(d.text, "\n") + 1
}

func (d *document) hasSelection() bool {
	return d.cursor != d.anchor
}

func (d *document) selectionRange() (start, end int) {
	if d.anchor < d.cursor {
		return d.anchor, d.cursor
	}
	return d.cursor, d.anchor
}

// replaceSelection replaces the selection, or inserts at the cursor when
// nothing is selected, and leaves the cursor after the inserted text.
func (d *document) replaceSelection(s string) {
	start, end := d.selectionRange()
	d.text = d.text[:start] + s + d.text[end:]
	d.cursor = start + len(s)
	d.anchor = d.cursor
}

// deleteBackward removes the selection, or the grapheme cluster before the
// cursor. It reports whether anything changed.
func (d *document) deleteBackward() bool {
	if d.hasSelection() {
		d.replaceSelection("")
		return true
	}
	if d.cursor == 0 {
		return false
	}
	prev := lastClusterStart(d.text[:d.cursor])
	d.text = d.text[:prev] + d.text[d.cursor:]
	d.cursor = prev
	d.anchor = prev
	return true
}

func (d *document) selectAll() {
	d.anchor = 0
	d.cursor = len(d.text)
}

// moveTo places the cursor at a clamped position and clears the selection.
func (d *document) moveTo(pos Position) {
	d.cursor = d.offset(pos)
	d.anchor = d.cursor
}

func (d *document) position() Position {
	return d.positionAt(d.cursor)
}

func (d *document) selection() (Position, Position) {
	start, end := d.selectionRange()
	return d.positionAt(start), d.positionAt(end)
}

func (d *document) positionAt(offset int) Position {
	before := d.text[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{
		Line:   line,
		Column: uniseg.GraphemeClusterCount(before[lineStart:]) + 1,
	}
}

// offset converts a position to a byte offset, clamping line and column to
// the document.
func (d *document) offset(pos Position) int {
	if pos.Line < 1 {
		pos.Line = 1
	}
	if pos.Column < 1 {
		pos.Column = 1
	}

	start := 0
	for line := 1; line < pos.Line; line++ {
		next := strings.IndexByte(d.text[start:], '\n')
		if next < 0 {
			break
		}
		start += next + 1
	}

	end := strings.IndexByte(d.text[start:], '\n')
	if end < 0 {
		end = len(d.text)
	} else {
		end += start
	}

	off := start
	rest := d.text[start:end]
	state := -1
	for col := 1; col < pos.Column && rest != ""; col++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		off += len(cluster)
	}
	return off
}

func (d *document) line(n int) string {
	lines := strings.Split(d.text, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

func lastClusterStart(s string) int {
	last := 0
	off := 0
	state := -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		last = off
		off += len(cluster)
	}
	return last
}
