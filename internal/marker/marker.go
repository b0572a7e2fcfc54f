// Package marker normalizes host-supplied diagnostics into the canonical
// marker shape used by editor backends.
//
// Hosts send diagnostics with whatever field names their tooling produced
// (startLineNumber, start_line, line, ...). Normalize resolves each field
// through a fixed alias list, coerces the value and fills defaults, so
// malformed input is never rejected.
package marker

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
)

// DefaultSource labels markers that arrive without a source.
const DefaultSource = "bridge"

// Severity is the diagnostic severity of a marker.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
	SeverityHint    Severity = 4
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var fold = cases.Fold()

// ParseSeverity maps a severity name case-insensitively. Anything
// unrecognized is Info.
func ParseSeverity(name string) Severity {
	switch fold.String(name) {
	case "error":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "hint":
		return SeverityHint
	default:
		return SeverityInfo
	}
}

// Marker is a positioned diagnostic. Lines and columns are 1-based.
type Marker struct {
	StartLine   int      `json:"startLineNumber"`
	StartColumn int      `json:"startColumn"`
	EndLine     int      `json:"endLineNumber"`
	EndColumn   int      `json:"endColumn"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Source      string   `json:"source"`
}

// Field aliases in priority order.
var (
	startLineKeys   = []string{"startLineNumber", "start_line", "line"}
	startColumnKeys = []string{"startColumn", "start_column", "column"}
	endLineKeys     = []string{"endLineNumber", "end_line", "line"}
	endColumnKeys   = []string{"endColumn", "end_column", "column"}
)

// Normalize converts a list of loosely shaped marker objects. The result
// has one marker per input item.
func Normalize(items []map[string]any) []Marker {
	out := make([]Marker, len(items))
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			// Unencodable values fall back to an all-default marker.
			raw = []byte(`{}`)
		}
		out[i] = normalizeOne(gjson.ParseBytes(raw))
	}
	return out
}

// NormalizeJSON converts a JSON array of marker objects. Input that is not
// an array yields an empty list.
func NormalizeJSON(data []byte) []Marker {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return []Marker{}
	}
	items := parsed.Array()
	out := make([]Marker, len(items))
	for i, item := range items {
		out[i] = normalizeOne(item)
	}
	return out
}

func normalizeOne(obj gjson.Result) Marker {
	source := DefaultSource
	if s := obj.Get("source"); truthy(s) {
		source = s.String()
	}
	message := ""
	if m := obj.Get("message"); truthy(m) {
		message = m.String()
	}
	return Marker{
		StartLine:   position(obj, startLineKeys),
		StartColumn: position(obj, startColumnKeys),
		EndLine:     position(obj, endLineKeys),
		EndColumn:   position(obj, endColumnKeys),
		Message:     message,
		Severity:    ParseSeverity(obj.Get("severity").String()),
		Source:      source,
	}
}

// position returns the first alias that holds a positive number, or 1.
func position(obj gjson.Result, keys []string) int {
	for _, key := range keys {
		v := obj.Get(key)
		if !truthy(v) {
			continue
		}
		if n, ok := coerceInt(v); ok && n >= 1 {
			return n
		}
	}
	return 1
}

func coerceInt(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		return int(v.Num), true
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return int(n), true
	case gjson.True:
		return 1, true
	default:
		return 0, false
	}
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		return true
	case gjson.True:
		return true
	default:
		return false
	}
}
