package config

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Defaults.
const (
	DefaultDebounce         = 180 * time.Millisecond
	DefaultLanguage         = "plaintext"
	DefaultTheme            = "vs-dark"
	DefaultFontFamily       = "JetBrains Mono"
	DefaultFontSize         = 13
	DefaultTabSize          = 2
	DefaultRenderWhitespace = "selection"
	DefaultLoadTimeout      = 10 * time.Second
)

// Config is the per-session editor configuration.
type Config struct {
	SubmitOnCtrlEnter bool
	EmitOnChange      bool
	Debounce          time.Duration
	Language          string
	Theme             string
	ReadOnly          bool
	WordWrap          bool
	Minimap           bool
	LineNumbers       bool
	GlyphMargin       bool
	TabSize           int
	FontFamily        string
	FontSize          int
	RenderWhitespace  string
	FormatOnType      bool
	FormatOnPaste     bool
	DocumentURI       string
	LoadTimeout       time.Duration
}

// Default returns the configuration used when the host injects nothing.
func Default() Config {
	return Config{
		SubmitOnCtrlEnter: true,
		EmitOnChange:      true,
		Debounce:          DefaultDebounce,
		Language:          DefaultLanguage,
		Theme:             DefaultTheme,
		LineNumbers:       true,
		TabSize:           DefaultTabSize,
		FontFamily:        DefaultFontFamily,
		FontSize:          DefaultFontSize,
		RenderWhitespace:  DefaultRenderWhitespace,
		LoadTimeout:       DefaultLoadTimeout,
	}
}

// FromJSON resolves a configuration object. Input that is empty or not an
// object yields Default().
func FromJSON(data []byte) Config {
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return Default()
	}
	return resolve(obj)
}

// FromMap resolves an already decoded configuration object.
func FromMap(m map[string]any) Config {
	if len(m) == 0 {
		return Default()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Default()
	}
	return FromJSON(data)
}

func resolve(obj gjson.Result) Config {
	return Config{
		SubmitOnCtrlEnter: notFalse(obj.Get("submitOnCtrlEnter")),
		EmitOnChange:      notFalse(obj.Get("emitOnChange")),
		Debounce:          millis(obj.Get("debounceMs"), DefaultDebounce),
		Language:          str(obj.Get("language"), DefaultLanguage),
		Theme:             str(obj.Get("theme"), DefaultTheme),
		ReadOnly:          isTrue(obj.Get("readOnly")),
		WordWrap:          wordWrap(obj.Get("wordWrap")),
		Minimap:           isTrue(obj.Get("minimap")),
		LineNumbers:       notFalse(obj.Get("lineNumbers")),
		GlyphMargin:       isTrue(obj.Get("glyphMargin")),
		TabSize:           positive(obj.Get("tabSize"), DefaultTabSize),
		FontFamily:        str(obj.Get("fontFamily"), DefaultFontFamily),
		FontSize:          positive(obj.Get("fontSize"), DefaultFontSize),
		RenderWhitespace:  str(obj.Get("renderWhitespace"), DefaultRenderWhitespace),
		FormatOnType:      isTrue(obj.Get("formatOnType")),
		FormatOnPaste:     isTrue(obj.Get("formatOnPaste")),
		DocumentURI:       str(obj.Get("documentUri"), ""),
		LoadTimeout:       millis(obj.Get("loadTimeoutMs"), DefaultLoadTimeout),
	}
}

// isTrue accepts only an explicit true.
func isTrue(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.String:
		return strings.EqualFold(strings.TrimSpace(v.Str), "true")
	default:
		return false
	}
}

// notFalse is true unless the value is an explicit false.
func notFalse(v gjson.Result) bool {
	switch v.Type {
	case gjson.False:
		return false
	case gjson.String:
		return !strings.EqualFold(strings.TrimSpace(v.Str), "false")
	default:
		return true
	}
}

// wordWrap accepts true as well as the "on" spelling used by rich editors.
func wordWrap(v gjson.Result) bool {
	if v.Type == gjson.String && strings.EqualFold(strings.TrimSpace(v.Str), "on") {
		return true
	}
	return isTrue(v)
}

func str(v gjson.Result, def string) string {
	switch v.Type {
	case gjson.String:
		if v.Str != "" {
			return v.Str
		}
	case gjson.Number:
		return v.Raw
	}
	return def
}

func number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// positive returns the value when it is a number >= 1, otherwise def.
func positive(v gjson.Result, def int) int {
	n, ok := number(v)
	if !ok || n < 1 {
		return def
	}
	return int(n)
}

// millis reads a millisecond count. Missing or non-numeric values resolve
// to def; negative values clamp to zero.
func millis(v gjson.Result, def time.Duration) time.Duration {
	n, ok := number(v)
	if !ok {
		return def
	}
	if n < 0 {
		return 0
	}
	return time.Duration(n * float64(time.Millisecond))
}
