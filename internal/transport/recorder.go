package transport

import (
	"sync"

	"github.com/tidwall/gjson"
)

// Recorded is a message captured by a Recorder.
type Recorded struct {
	Event   string
	Payload gjson.Result
	Raw     string
}

// Recorder is an always-available channel that keeps every message it is
// given. It backs tests and the host's in-process consumers.
type Recorder struct {
	mu       sync.Mutex
	name     string
	messages []Recorded
}

// NewRecorder creates an empty recorder.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name}
}

func (r *Recorder) Name() string { return r.name }

func (r *Recorder) Available() bool { return true }

func (r *Recorder) Post(msg []byte) error {
	parsed := gjson.ParseBytes(msg)
	r.mu.Lock()
	r.messages = append(r.messages, Recorded{
		Event:   parsed.Get("event").String(),
		Payload: parsed.Get("payload"),
		Raw:     string(msg),
	})
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.messages...)
}

// Events returns the recorded messages with the given event name.
func (r *Recorder) Events(event string) []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Recorded
	for _, m := range r.messages {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// Count returns how many messages with the given event were recorded.
func (r *Recorder) Count(event string) int {
	return len(r.Events(event))
}

// Reset discards all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
