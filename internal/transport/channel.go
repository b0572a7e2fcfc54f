package transport

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single WebSocket frame write.
const DefaultWriteTimeout = time.Second

// ErrChannelClosed is returned when posting to a channel that has gone away.
var ErrChannelClosed = errors.New("channel closed")

// Channel is one host message channel.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Available reports whether the channel is present in the current
	// environment. It is probed before every send.
	Available() bool

	// Post writes one encoded message.
	Post(msg []byte) error
}

// FuncChannel adapts a pair of closures to Channel. Page integrations use it
// to wrap handler objects that may or may not have been injected.
type FuncChannel struct {
	name  string
	probe func() bool
	post  func([]byte) error
}

// NewFuncChannel creates a channel from a probe and a post function.
// A nil probe means the channel is always available.
func NewFuncChannel(name string, probe func() bool, post func([]byte) error) *FuncChannel {
	return &FuncChannel{name: name, probe: probe, post: post}
}

func (c *FuncChannel) Name() string { return c.name }

func (c *FuncChannel) Available() bool {
	if c.post == nil {
		return false
	}
	if c.probe == nil {
		return true
	}
	return c.probe()
}

func (c *FuncChannel) Post(msg []byte) error {
	if c.post == nil {
		return ErrChannelClosed
	}
	return c.post(msg)
}

// WriterChannel writes newline-delimited messages to an io.Writer.
// It is used by hosts that talk to the bridge over a byte stream.
type WriterChannel struct {
	mu   sync.Mutex
	name string
	w    *bufio.Writer
}

// NewWriterChannel creates a stream channel on w.
func NewWriterChannel(name string, w io.Writer) *WriterChannel {
	return &WriterChannel{name: name, w: bufio.NewWriter(w)}
}

func (c *WriterChannel) Name() string { return c.name }

func (c *WriterChannel) Available() bool { return c.w != nil }

func (c *WriterChannel) Post(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(msg); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

// WebSocketChannel posts text frames to a single connection. The channel
// reports itself unavailable until a connection is attached and after it
// has been detached. A post that cannot finish within the write timeout
// fails and detaches the connection.
type WebSocketChannel struct {
	mu      sync.Mutex
	name    string
	conn    *websocket.Conn
	timeout time.Duration
}

// NewWebSocketChannel creates a detached WebSocket channel.
func NewWebSocketChannel(name string) *WebSocketChannel {
	return &WebSocketChannel{name: name, timeout: DefaultWriteTimeout}
}

// SetWriteTimeout changes the per-frame write timeout. Non-positive values
// restore the default.
func (c *WebSocketChannel) SetWriteTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultWriteTimeout
	}
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Attach makes conn the destination for subsequent posts.
func (c *WebSocketChannel) Attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// Detach clears the connection if it is still conn.
func (c *WebSocketChannel) Detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// Reply writes a text frame on conn, which need not be the attached
// connection. Replies and posts share one lock so that writes on a
// connection never interleave.
func (c *WebSocketChannel) Reply(conn *websocket.Conn, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(conn, msg)
}

func (c *WebSocketChannel) Name() string { return c.name }

func (c *WebSocketChannel) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *WebSocketChannel) Post(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrChannelClosed
	}
	return c.writeLocked(c.conn, msg)
}

func (c *WebSocketChannel) writeLocked(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(c.timeout))
	err := conn.WriteMessage(websocket.TextMessage, msg)
	if err != nil && conn == c.conn {
		// A failed write leaves the connection unusable.
		c.conn = nil
	}
	return err
}
