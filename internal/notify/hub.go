package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a slow client may fall behind before
	// new events are dropped for it.
	sendBuffer = 32
)

type clientMsg struct {
	Type string `json:"type"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// enqueue never blocks. It reports false when the client's queue is full.
func (c *wsClient) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// writePump is the only writer on conn.
func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				zap.L().Debug("live feed write failed", zap.Error(err))
				c.conn.Close()
				return
			}
		}
	}
}

// Hub pushes live feed events to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	dropped  atomic.Int64
}

// NewHub creates a hub. allowOrigin may be nil to accept same-origin only.
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		clients:  make(map[*wsClient]struct{}),
	}
}

// HandleWS upgrades the request and keeps the client registered until it
// disconnects. Clients may send {"type":"ping"}.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writePump()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.done)
		conn.Close()
	}()

	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			c.enqueue([]byte(`{"type":"pong"}`))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues e for every connected client and returns without waiting
// on any socket. Clients whose queue is full miss the event.
func (h *Hub) Publish(_ context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.enqueue(b) {
			h.dropped.Add(1)
		}
	}
	return nil
}

// Dropped returns how many per-client deliveries were skipped because the
// client was not keeping up.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
