// Package coalesce limits high-frequency notifications to one per quiet
// period.
package coalesce

import (
	"sync"
	"time"
)

// DefaultInterval is the quiet period used when none is configured.
const DefaultInterval = 180 * time.Millisecond

// Coalescer is a rearming single-shot timer. Every Notify cancels the
// previously armed timer and starts a new one; when a timer survives its
// full interval the fire callback runs once. The callback is expected to
// read whatever state it reports at fire time, so the last write always
// wins.
//
// Thread-safety: All methods are safe for concurrent use. The callback is
// never called concurrently with itself from the coalescer.
type Coalescer struct {
	mu       sync.Mutex
	fireMu   sync.Mutex
	interval time.Duration
	enabled  bool
	stopped  bool
	timer    *time.Timer
	pending  bool
	seq      uint64 // detects stale timer callbacks
	fire     func()
}

// New creates a coalescer. Negative intervals are clamped to zero. A
// disabled coalescer ignores Notify entirely.
func New(interval time.Duration, enabled bool, fire func()) *Coalescer {
	if interval < 0 {
		interval = 0
	}
	return &Coalescer{
		interval: interval,
		enabled:  enabled,
		fire:     fire,
	}
}

// Notify arms or re-arms the timer.
func (c *Coalescer) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || c.stopped || c.fire == nil {
		return
	}

	c.pending = true
	c.seq++
	currentSeq := c.seq

	if c.timer != nil {
		c.timer.Stop()
	}

	c.timer = time.AfterFunc(c.interval, func() {
		c.mu.Lock()
		// Only the most recent arming may fire.
		if c.pending && c.seq == currentSeq && !c.stopped {
			c.pending = false
			c.timer = nil
			c.mu.Unlock()
			c.run()
		} else {
			c.mu.Unlock()
		}
	})
}

func (c *Coalescer) armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Stop cancels any pending notification and disables the coalescer for
// good. A timer that is already running its callback is not interrupted.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.seq++
	c.pending = false
	c.stopped = true
}

func (c *Coalescer) run() {
	c.fireMu.Lock()
	defer c.fireMu.Unlock()
	c.fire()
}
