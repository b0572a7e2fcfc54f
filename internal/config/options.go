package config

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Options is a partial configuration update. Nil fields are left alone.
type Options struct {
	ReadOnly         *bool
	WordWrap         *bool
	FontSize         *int
	FontFamily       *string
	TabSize          *int
	Minimap          *bool
	LineNumbers      *bool
	GlyphMargin      *bool
	RenderWhitespace *string
	FormatOnType     *bool
	FormatOnPaste    *bool
	Theme            *string

	// Raw holds every key the caller passed, recognized or not.
	Raw map[string]any
}

// ParseOptions builds a patch from a setOptions argument. Present keys with
// invalid values resolve to their defaults rather than being skipped.
func ParseOptions(m map[string]any) Options {
	opts := Options{Raw: make(map[string]any, len(m))}
	for k, v := range m {
		opts.Raw[k] = v
	}
	if len(m) == 0 {
		return opts
	}
	data, err := json.Marshal(m)
	if err != nil {
		return opts
	}
	obj := gjson.ParseBytes(data)

	if v := obj.Get("readOnly"); v.Exists() {
		opts.ReadOnly = ptr(isTrue(v))
	}
	if v := obj.Get("wordWrap"); v.Exists() {
		opts.WordWrap = ptr(wordWrap(v))
	}
	if v := obj.Get("fontSize"); v.Exists() {
		opts.FontSize = ptr(positive(v, DefaultFontSize))
	}
	if v := obj.Get("fontFamily"); v.Exists() {
		opts.FontFamily = ptr(str(v, DefaultFontFamily))
	}
	if v := obj.Get("tabSize"); v.Exists() {
		opts.TabSize = ptr(positive(v, DefaultTabSize))
	}
	if v := obj.Get("minimap"); v.Exists() {
		opts.Minimap = ptr(isTrue(v))
	}
	if v := obj.Get("lineNumbers"); v.Exists() {
		opts.LineNumbers = ptr(notFalse(v) && !offString(v))
	}
	if v := obj.Get("glyphMargin"); v.Exists() {
		opts.GlyphMargin = ptr(isTrue(v))
	}
	if v := obj.Get("renderWhitespace"); v.Exists() {
		opts.RenderWhitespace = ptr(str(v, DefaultRenderWhitespace))
	}
	if v := obj.Get("formatOnType"); v.Exists() {
		opts.FormatOnType = ptr(isTrue(v))
	}
	if v := obj.Get("formatOnPaste"); v.Exists() {
		opts.FormatOnPaste = ptr(isTrue(v))
	}
	if v := obj.Get("theme"); v.Exists() {
		opts.Theme = ptr(str(v, DefaultTheme))
	}
	return opts
}

func offString(v gjson.Result) bool {
	return v.Type == gjson.String && v.Str == "off"
}

// Apply returns c with every recognized option in o merged in.
func (c Config) Apply(o Options) Config {
	c = c.ApplyBasic(o)
	setInt(&c.TabSize, o.TabSize)
	setBool(&c.Minimap, o.Minimap)
	setBool(&c.LineNumbers, o.LineNumbers)
	setBool(&c.GlyphMargin, o.GlyphMargin)
	setString(&c.RenderWhitespace, o.RenderWhitespace)
	setBool(&c.FormatOnType, o.FormatOnType)
	setBool(&c.FormatOnPaste, o.FormatOnPaste)
	setString(&c.Theme, o.Theme)
	return c
}

// ApplyBasic returns c with only readOnly, wordWrap, fontSize and
// fontFamily merged in.
func (c Config) ApplyBasic(o Options) Config {
	setBool(&c.ReadOnly, o.ReadOnly)
	setBool(&c.WordWrap, o.WordWrap)
	setInt(&c.FontSize, o.FontSize)
	setString(&c.FontFamily, o.FontFamily)
	return c
}

func ptr[T any](v T) *T { return &v }

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
