package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mindmesh/mindmesh/pkg/eventbus"
	"github.com/mindmesh/mindmesh/pkg/logger"
)

const (
	defaultSendBuffer   = 32
	defaultPingInterval = 30 * time.Second
	defaultWriteWait    = 10 * time.Second
	defaultPongWait     = 60 * time.Second
)

// EventStream bridges the lifecycle event bus onto websocket clients. Each
// client gets its own bus subscription; slow clients drop messages rather
// than stall the bus.
type EventStream struct {
	bus     *eventbus.Bus
	pattern string
	buffer  int
	logger  logger.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewEventStream creates an EventStream for the given bus. Pattern selects
// the subjects to forward; an empty pattern forwards every lifecycle event.
func NewEventStream(bus *eventbus.Bus, pattern string, buffer int, log logger.Logger) *EventStream {
	if pattern == "" {
		pattern = eventbus.SubjectPrefix + ".>"
	}
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &EventStream{
		bus:     bus,
		pattern: pattern,
		buffer:  buffer,
		logger:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Introspection endpoint; same-origin policy is not enforced.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Serve handles GET /events: upgrade, subscribe, and forward until the
// client goes away or the subscription closes.
func (s *EventStream) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub, err := s.bus.Subscribe(s.pattern, s.buffer)
	if err != nil {
		s.logger.Warn("event subscription failed", "error", err)
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		_ = sub.Close()
		_ = conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	// Reader goroutine: drains control frames and detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(defaultPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(defaultPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(defaultPingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *EventStream) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
