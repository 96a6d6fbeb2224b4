// Package realtime maintains the websocket event channel: connect, dispatch
// typed events to subscribers, and reconnect on a fixed delay until
// explicitly disconnected.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/logging"
)

// TokenSource supplies the current access token for the websocket handshake.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Handler consumes one event. Handlers run on the read loop goroutine; a
// panicking handler is recovered and logged, never taking the channel down.
type Handler func(models.Event)

// ConnectivityHandler is told whether the channel is connected. It fires with
// true after every successful dial and with false once per connection loss,
// whether a clean Disconnect or an abnormal drop.
type ConnectivityHandler func(connected bool)

// Channel is a resilient client-side websocket connection.
//
// The reconnect policy is deliberately dumb: a flat delay, no backoff, no
// retry cap. Only Disconnect stops it.
type Channel struct {
	url         string
	tokens      TokenSource
	devIdentity string
	log         logging.Logger

	reconnectDelay time.Duration
	dialer         *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	handlers       map[models.EventType][]Handler
	anyHandlers    []Handler
	connHandlers   []ConnectivityHandler
	reconnectTimer *time.Timer
	closed         bool
}

// Option customizes a Channel.
type Option func(*Channel)

// WithReconnectDelay overrides the flat reconnect delay (default 5s).
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) { c.reconnectDelay = d }
}

// WithDevIdentity switches the handshake to the dev identity header instead
// of a bearer token.
func WithDevIdentity(email string) Option {
	return func(c *Channel) { c.devIdentity = email }
}

// NewChannel constructs a Channel for the given ws:// or wss:// URL.
func NewChannel(url string, tokens TokenSource, log logging.Logger, opts ...Option) *Channel {
	c := &Channel{
		url:            url,
		tokens:         tokens,
		log:            log,
		reconnectDelay: 5 * time.Second,
		dialer:         websocket.DefaultDialer,
		handlers:       make(map[models.EventType][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a handler for one event type.
func (c *Channel) Subscribe(et models.EventType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[et] = append(c.handlers[et], h)
}

// SubscribeAll registers a handler that receives every event.
func (c *Channel) SubscribeAll(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anyHandlers = append(c.anyHandlers, h)
}

// SubscribeConnectivity registers a handler for connection state changes.
func (c *Channel) SubscribeConnectivity(h ConnectivityHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connHandlers = append(c.connHandlers, h)
}

// Connect dials the server and starts the read loop. A failed dial is not an
// error to the caller: it arms the reconnect timer like any other drop.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	header := http.Header{}
	if c.devIdentity != "" {
		header.Set(common.DevIdentityHeader, c.devIdentity)
	} else if token := c.tokens.AccessToken(ctx); token != "" {
		header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		c.log.Warn(ctx, "websocket dial failed", "err", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Debug(ctx, "websocket connected", "url", c.url)
	c.notifyConnectivity(true)
	go c.readLoop(conn)
}

// Disconnect closes the connection and cancels any pending reconnect.
// The channel cannot be reused afterwards.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			conn.Close()
			// Exactly one disconnected notification per established
			// connection, whatever ended it.
			c.notifyConnectivity(false)
			if !closed {
				c.log.Warn(context.Background(), "websocket dropped", "err", err)
				c.scheduleReconnect()
			}
			return
		}

		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
			c.log.Debug(context.Background(), "dropping malformed frame", "err", err)
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Channel) dispatch(ev models.Event) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[ev.Type]...)
	handlers = append(handlers, c.anyHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		c.invoke(h, ev)
	}
}

func (c *Channel) notifyConnectivity(connected bool) {
	c.mu.Lock()
	handlers := append([]ConnectivityHandler(nil), c.connHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error(context.Background(), "connectivity handler panicked", "panic", r)
				}
			}()
			h(connected)
		}()
	}
}

// invoke runs one handler with panic isolation.
func (c *Channel) invoke(h Handler, ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(context.Background(), "event handler panicked", "type", ev.Type, "panic", r)
		}
	}()
	h(ev)
}

// scheduleReconnect arms the single-slot reconnect timer.
func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() {
		c.Connect(context.Background())
	})
}
