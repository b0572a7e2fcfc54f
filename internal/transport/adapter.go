package transport

import (
	"fmt"

	"go.uber.org/zap"
)

// Drop reasons reported to metrics.
const (
	dropNoChannel = "no_channel"
	dropEncode    = "encode"
	dropPost      = "post"
	dropPanic     = "panic"
)

// Adapter sends outbound messages through the first available channel.
//
// Thread-safety: Send is safe for concurrent use provided the channels are.
type Adapter struct {
	channels []Channel
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for drops and channel failures.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records sends and drops.
func WithMetrics(m *Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// NewAdapter creates an adapter over channels, highest priority first.
func NewAdapter(channels []Channel, opts ...Option) *Adapter {
	a := &Adapter{
		channels: append([]Channel(nil), channels...),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("transport")
	return a
}

// Send encodes and posts one message. It never panics and never blocks
// beyond the channel's own write.
func (a *Adapter) Send(event string, payload Payload) {
	if a == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("send panicked", zap.String("event", event), zap.Any("panic", r))
			a.metrics.dropped(event, dropPanic)
		}
	}()

	ch := a.selectChannel()
	if ch == nil {
		a.metrics.dropped(event, dropNoChannel)
		return
	}

	msg, err := Message{Event: event, Payload: payload}.Encode()
	if err != nil {
		a.logger.Warn("encode failed", zap.String("event", event), zap.Error(err))
		a.metrics.dropped(event, dropEncode)
		return
	}

	if err := ch.Post(msg); err != nil {
		a.logger.Debug("post failed",
			zap.String("event", event),
			zap.String("channel", ch.Name()),
			zap.Error(err))
		a.metrics.dropped(event, dropPost)
		return
	}
	a.metrics.sent(event, ch.Name())
}

// Active returns the name of the channel the next send would use, or ""
// when none is present.
func (a *Adapter) Active() string {
	if a == nil {
		return ""
	}
	if ch := a.selectChannel(); ch != nil {
		return ch.Name()
	}
	return ""
}

// selectChannel probes channels in priority order. A probe that panics is
// treated as absent.
func (a *Adapter) selectChannel() Channel {
	for _, ch := range a.channels {
		if ch != nil && probe(ch) {
			return ch
		}
	}
	return nil
}

func probe(ch Channel) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return ch.Available()
}

// String describes the adapter's channel order.
func (a *Adapter) String() string {
	names := make([]string, 0, len(a.channels))
	for _, ch := range a.channels {
		if ch != nil {
			names = append(names, ch.Name())
		}
	}
	return fmt.Sprintf("transport%v", names)
}
