package host

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/transport"
)

// WSServer accepts WebSocket connections from hosts. The most recently
// connected session receives outbound events; every session may send
// calls and receives its own replies.
type WSServer struct {
	dispatcher *Dispatcher
	channel    *transport.WebSocketChannel
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*websocket.Conn
	closed   bool
	wg       sync.WaitGroup
}

// NewWSServer creates a server that attaches connections to ch.
func NewWSServer(d *Dispatcher, ch *transport.WebSocketChannel, logger *zap.Logger) *WSServer {
	if logger == nil {
		logger = logging.L()
	}
	return &WSServer{
		dispatcher: d,
		channel:    ch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Hosts are embedded webviews and local tools.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:   logger.Named("ws"),
		sessions: make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and serves the session until the peer
// disconnects or the server is closed.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.sessions[id] = conn
	s.mu.Unlock()

	s.channel.Attach(conn)
	log := s.logger.With(zap.String("session", id))
	log.Info("session opened", zap.String("remote", r.RemoteAddr))

	defer func() {
		s.channel.Detach(conn)
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		_ = conn.Close()
		log.Info("session closed")
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		reply := s.dispatcher.Handle(r.Context(), data)
		if err := s.channel.Reply(conn, reply); err != nil {
			log.Warn("reply failed", zap.Error(err))
			return
		}
	}
}

// Sessions returns the number of open sessions.
func (s *WSServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close disconnects every session and waits for their handlers to return.
func (s *WSServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.sessions))
	for _, c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	for _, c := range conns {
		s.channel.Detach(c)
		if cerr := c.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	s.wg.Wait()
	return err
}
