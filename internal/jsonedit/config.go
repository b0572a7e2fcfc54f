package jsonedit

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Config controls the validating editor.
type Config struct {
	EmitOnChange bool
	Enabled      bool
	ReadOnly     bool
	ShowToolbar  bool
}

// DefaultConfig returns the configuration used when the host injects
// nothing.
func DefaultConfig() Config {
	return Config{
		EmitOnChange: true,
		Enabled:      true,
		ShowToolbar:  true,
	}
}

// ParseConfig resolves a host configuration object. Every flag defaults to
// its DefaultConfig value unless given explicitly; readOnly only turns on
// for an explicit true.
func ParseConfig(m map[string]any) Config {
	data, err := json.Marshal(m)
	if err != nil {
		return DefaultConfig()
	}
	obj := gjson.ParseBytes(data)
	return Config{
		EmitOnChange: obj.Get("emitOnChange").Type != gjson.False,
		Enabled:      obj.Get("enabled").Type != gjson.False,
		ReadOnly:     obj.Get("readOnly").Type == gjson.True,
		ShowToolbar:  obj.Get("showToolbar").Type != gjson.False,
	}
}

// CanEdit reports whether user input reaches the buffer.
func (c Config) CanEdit() bool {
	return c.Enabled && !c.ReadOnly
}

// CanFormat reports whether the format action is available.
func (c Config) CanFormat() bool {
	return c.Enabled && !c.ReadOnly
}

// CanApply reports whether the apply action is available.
func (c Config) CanApply() bool {
	return c.Enabled
}
