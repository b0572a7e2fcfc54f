// Package config resolves the editor bridge configuration.
//
// The host injects a loosely shaped configuration object once at bootstrap.
// Every recognized key is coerced to its target type; missing, mistyped or
// out-of-range values resolve to a documented default, so a Config is never
// partially defined.
//
// # Sources
//
// The same resolution path serves three inputs:
//
//   - FromJSON: the raw object injected into the page
//   - FromMap: an already decoded object (host calls, env overlays)
//   - LoadFile: a host config file, TOML (.toml), YAML (.yaml, .yml) or JSON
//
// # Live updates
//
// ParseOptions turns a setOptions argument into an Options patch. Apply
// merges every recognized key; ApplyBasic merges only the subset a minimal
// backend can honor (readOnly, wordWrap, fontSize, fontFamily).
package config
