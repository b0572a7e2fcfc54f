package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "EDITORBRIDGE_"

// envMapping maps environment variables to config keys.
var envMapping = map[string]string{
	EnvPrefix + "LANGUAGE":     "language",
	EnvPrefix + "THEME":        "theme",
	EnvPrefix + "READ_ONLY":    "readOnly",
	EnvPrefix + "WORD_WRAP":    "wordWrap",
	EnvPrefix + "DEBOUNCE_MS":  "debounceMs",
	EnvPrefix + "FONT_FAMILY":  "fontFamily",
	EnvPrefix + "FONT_SIZE":    "fontSize",
	EnvPrefix + "DOCUMENT_URI": "documentUri",
}

// LoadFile reads a host config file and resolves it. A missing path
// resolves to Default().
func LoadFile(path string) (Config, error) {
	m, err := ReadFile(path)
	if err != nil {
		return Default(), err
	}
	return FromMap(m), nil
}

// ReadFile decodes a config file into a raw object, picking the decoder by
// extension.
func ReadFile(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(filepath.Ext(path), path, data)
}

// Decode parses config data in the format named by ext.
func Decode(ext, source string, data []byte) (map[string]any, error) {
	var m map[string]any
	var err error

	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".json", "":
		err = json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// ApplyEnv overlays environment overrides onto m and returns it. lookup is
// normally os.LookupEnv. Values are kept as strings; resolution coerces them.
func ApplyEnv(m map[string]any, lookup func(string) (string, bool)) map[string]any {
	if m == nil {
		m = map[string]any{}
	}
	for env, key := range envMapping {
		if v, ok := lookup(env); ok {
			m[key] = v
		}
	}
	return m
}
