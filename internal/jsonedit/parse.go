package jsonedit

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Result is the outcome of validating the buffer.
type Result struct {
	Valid bool
	// Value is the compact JSON document, or nil for an empty buffer or
	// invalid input.
	Value json.RawMessage
	// Error is the parse error message for invalid input.
	Error string
}

// Parse validates text. Empty or whitespace-only text is valid with a nil
// value.
func Parse(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Valid: true}
	}
	if gjson.Valid(text) {
		return Result{Valid: true, Value: json.RawMessage(text)}
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Result{Error: err.Error()}
	}
	// gjson is stricter than encoding/json about a few inputs; trust the
	// decoder when it accepts the text.
	return Result{Valid: true, Value: raw}
}

// Status is the human readable state shown in the toolbar.
func (r Result) Status(text string) string {
	switch {
	case !r.Valid && r.Error != "":
		return r.Error
	case !r.Valid:
		return "Invalid JSON"
	case strings.TrimSpace(text) == "":
		return "Empty"
	default:
		return "Valid JSON"
	}
}

func (r Result) errorMessage() string {
	if r.Error == "" {
		return "Invalid JSON"
	}
	return r.Error
}
