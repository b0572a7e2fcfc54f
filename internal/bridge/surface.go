package bridge

import "context"

// Surface is the control surface the host calls into.
type Surface interface {
	// Value returns the buffer, or "" before the backend is ready.
	Value() string

	// SetValue replaces the buffer. A silent update does not notify the host.
	SetValue(text string, silent bool)

	Focus()
	Blur()
	SelectAll()

	// InsertText replaces the selection or inserts at the cursor and always
	// notifies the host.
	InsertText(text string)

	// RevealLine scrolls the line into view. No-op on the fallback.
	RevealLine(line int)

	// SetMarkers normalizes and replaces the diagnostic set. No-op on the
	// fallback.
	SetMarkers(markers []map[string]any)

	// SetMarkersJSON is SetMarkers for a raw JSON array. Every element,
	// object or not, yields one marker.
	SetMarkersJSON(data []byte)

	// FormatDocument formats the buffer and reports whether it changed.
	// Always false on the fallback.
	FormatDocument(ctx context.Context) bool

	// SetOptions applies live option changes.
	SetOptions(opts map[string]any)

	// SetTheme switches the theme. No-op on the fallback.
	SetTheme(theme string)
}

var _ Surface = (*Editor)(nil)
