// Package loader selects the editing backend for a bridge instance.
//
// The Selector tries to load the primary backend's module and construct
// the rich backend from it. Any failure along the way, a missing loader,
// an unreachable module source, a load timeout, an invalid module or a
// constructor error, switches deterministically to the plain fallback
// backend and records a reason code. The choice is made once per Selector
// and never revisited.
//
// State machine:
//
//	Uninitialized -> ProbingPrimary -> PrimaryActive
//	                               \-> FallbackActive
//
// Modules are Lua scripts returning a table of formatters and themes:
//
//	return {
//	  name = "extras",
//	  formatters = {
//	    lua = function(text) return (text:gsub("[ \t]+\n", "\n")) end,
//	  },
//	  themes = {
//	    solarized = { foreground = "#839496", background = "#002b36" },
//	  },
//	}
package loader
