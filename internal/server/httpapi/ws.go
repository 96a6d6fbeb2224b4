package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin is fine: auth happens via the bearer token on the
	// handshake, not via cookies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades an authenticated request to a websocket and keeps the
// connection registered with the hub until either side closes it.
func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn(r.Context(), "websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	c := &wsClient{userID: userID, conn: conn, send: make(chan []byte, sendBufferSize)}
	a.hub.register(c)

	a.log.Info(r.Context(), "websocket connected", "user_id", userID)

	// Queued before the pumps start, so it is always the first frame out.
	c.send <- mustEventFrame("connected", nil)

	go a.writePump(c)
	go a.readPump(c)
}

// readPump discards inbound frames (the protocol is server-to-client) and
// tears the connection down on error.
func (a *API) readPump(c *wsClient) {
	defer func() {
		a.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (a *API) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcastTaskUpdate notifies all of the user's devices that the task set
// changed; each device reacts by pulling.
func (a *API) broadcastTaskUpdate(ctx context.Context, userID string) {
	a.hub.Broadcast(ctx, userID, mustEventFrame("task:updated", nil))
}

func mustEventFrame(eventType string, data any) []byte {
	frame := map[string]any{"type": eventType}
	if data != nil {
		frame["data"] = data
	}
	b, _ := json.Marshal(frame)
	return b
}
