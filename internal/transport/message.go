package transport

import (
	"github.com/tidwall/sjson"
)

// Outbound event names.
const (
	EventReady        = "ready"
	EventChange       = "change"
	EventFocus        = "focus"
	EventBlur         = "blur"
	EventCursorChange = "cursor_change"
	EventSave         = "save"
	EventSubmit       = "submit"
	EventError        = "error"
	EventFormat       = "format"
	EventApply        = "apply"
)

// Payload carries the fields of an outbound message.
type Payload map[string]any

// Message is a single outbound notification.
type Message struct {
	Event   string
	Payload Payload
}

// Encode renders the message as {"event":...,"payload":{...}}.
// A nil payload is encoded as an empty object.
func (m Message) Encode() ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "event", m.Event)
	if err != nil {
		return nil, err
	}
	if len(m.Payload) == 0 {
		return sjson.SetRawBytes(out, "payload", []byte(`{}`))
	}
	return sjson.SetBytes(out, "payload", map[string]any(m.Payload))
}
