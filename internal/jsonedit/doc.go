// Package jsonedit implements the validating JSON editor: a plain text
// buffer that continuously parses its content, reports validity to the host,
// and offers explicit Format and Apply actions.
//
// It shares the transport and change coalescing of the main bridge but has
// no backend selection; the buffer is always a plain one.
package jsonedit
