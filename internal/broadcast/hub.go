// Package broadcast streams envelopes to external renderers over WebSocket
// and lets one claudewatch follow another.
package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"claudewatch/internal/types"
)

const (
	clientBuffer = 64
	writeTimeout = 10 * time.Second
)

// SnapshotFunc returns the JSON-serializable state served on /slots.
type SnapshotFunc func() any

// =============================================================================
// HUB
// =============================================================================

// Hub fans envelopes out to connected WebSocket clients. A client that
// cannot keep up is disconnected rather than slowing the others.
type Hub struct {
	upgrader websocket.Upgrader
	snapshot SnapshotFunc

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan types.Envelope
}

// NewHub creates a hub. snapshot may be nil.
func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// local tool: renderers connect from any origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		snapshot: snapshot,
		clients:  make(map[string]*client),
	}
}

// Handler returns the hub's HTTP routes: /ws, /slots and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/slots", h.serveSlots)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (h *Hub) serveSlots(w http.ResponseWriter, r *http.Request) {
	var state any = []any{}
	if h.snapshot != nil {
		state = h.snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Printf("[ws] encode /slots: %v", err)
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan types.Envelope, clientBuffer),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	log.Printf("[ws] client %s connected from %s", c.id[:8], r.RemoteAddr)

	go h.writeLoop(c)

	// Clients only listen; reading detects disconnects and handles pings.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	conn.Close()
	log.Printf("[ws] client %s disconnected", c.id[:8])
}

func (h *Hub) writeLoop(c *client) {
	for env := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(env); err != nil {
			h.unregister(c)
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

// unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Broadcast queues env for every client without blocking.
func (h *Hub) Broadcast(env types.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- env:
		default:
			log.Printf("[ws] client %s too slow, disconnecting", id[:8])
			delete(h.clients, id)
			close(c.send)
			c.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts envelopes from envs until the channel closes or ctx is
// done, then disconnects every client.
func (h *Hub) Run(ctx context.Context, envs <-chan types.Envelope) {
	defer h.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envs:
			if !ok {
				return
			}
			h.Broadcast(env)
		}
	}
}

// Close sends a going-away close frame to every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	for id, c := range h.clients {
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		delete(h.clients, id)
		close(c.send)
	}
}
