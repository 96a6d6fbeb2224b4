package httpapi

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/synclist/internal/logging"
	"github.com/gorilla/websocket"
)

// wsClient is one connected device. Writes go through a buffered channel
// so a slow reader cannot block a broadcast; when the buffer fills the
// connection is dropped and the device reconnects.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

const sendBufferSize = 16

// Hub tracks websocket connections per user and fans events out to all of
// a user's devices.
type Hub struct {
	log logging.Logger

	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]map[*wsClient]struct{}),
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Broadcast queues frame for every connection the user holds. Connections
// whose send buffer is full are dropped.
func (h *Hub) Broadcast(ctx context.Context, userID string, frame []byte) {
	h.mu.RLock()
	var stale []*wsClient
	for c := range h.clients[userID] {
		select {
		case c.send <- frame:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.log.Warn(ctx, "dropping slow websocket client", "user_id", userID)
		h.unregister(c)
		_ = c.conn.Close()
	}
}

// ConnectionCount reports the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close drops every connection; used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.clients {
		for c := range set {
			close(c.send)
			_ = c.conn.Close()
		}
	}
	h.clients = make(map[string]map[*wsClient]struct{})
}
