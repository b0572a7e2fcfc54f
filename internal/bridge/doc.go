// Package bridge connects an editing backend to the host shell.
//
// Start builds an Editor: it selects a backend in the background, wires the
// backend's native events to the outbound transport, and emits a single
// ready message once a backend (primary or fallback) is live. The Editor is
// the control surface the host calls into. Every method is safe to call at
// any time: before the backend is ready, after a fallback was chosen, and
// after Close. Unsupported or premature calls degrade to a no-op, false or
// the empty string; nothing panics across the bridge boundary.
//
// Content changes are coalesced: user edits and non-silent programmatic
// edits arm a debounce timer, and the change message carries the buffer as
// it is when the timer fires.
package bridge
