package backend

import (
	"bytes"
	"context"
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrInvalidJSON is returned when formatting text that is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

var jsonOptions = &pretty.Options{
	Width:    0, // never collapse arrays onto one line
	Prefix:   "",
	Indent:   "  ",
	SortKeys: false,
}

// FormatJSON re-indents a JSON document with two spaces.
func FormatJSON(text string) (string, error) {
	if !gjson.Valid(text) {
		return "", ErrInvalidJSON
	}
	out := pretty.PrettyOptions([]byte(text), jsonOptions)
	return string(bytes.TrimRight(out, "\n")), nil
}

// JSONFormatter formats JSON documents.
var JSONFormatter Formatter = FormatterFunc(func(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return FormatJSON(text)
})
