package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/synclist/internal/client/models"
	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/dmitrijs2005/synclist/internal/logging"
)

type staticTokens struct{ token string }

func (s *staticTokens) AccessToken(ctx context.Context) string { return s.token }

// wsServer upgrades every request and hands the connection to serve.
// It records the number of accepted connections and the first handshake
// headers it saw.
type wsServer struct {
	srv       *httptest.Server
	conns     atomic.Int32
	mu        sync.Mutex
	firstHdr  http.Header
	serveConn func(*websocket.Conn)
}

func newWSServer(t *testing.T, serve func(*websocket.Conn)) *wsServer {
	t.Helper()
	ws := &wsServer{serveConn: serve}
	upgrader := websocket.Upgrader{}
	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.mu.Lock()
		if ws.firstHdr == nil {
			ws.firstHdr = r.Header.Clone()
		}
		ws.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.conns.Add(1)
		ws.serveConn(conn)
	}))
	t.Cleanup(ws.srv.Close)
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.srv.URL, "http")
}

func (ws *wsServer) header(key string) string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.firstHdr == nil {
		return ""
	}
	return ws.firstHdr.Get(key)
}

// drain reads until the peer closes, keeping the connection alive without
// blocking server shutdown.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestConnect_DispatchesTypedEvents(t *testing.T) {
	ws := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"task:created","data":{"id":"t1"}}`))
		drain(conn)
	})

	ch := NewChannel(ws.url(), &staticTokens{token: "at"}, &logging.NopLogger{}, WithReconnectDelay(20*time.Millisecond))
	t.Cleanup(ch.Disconnect)

	var typed, all atomic.Int32
	ch.Subscribe(models.EventTaskCreated, func(ev models.Event) { typed.Add(1) })
	ch.Subscribe(models.EventTaskDeleted, func(ev models.Event) {
		t.Error("handler for a different type must not fire")
	})
	ch.SubscribeAll(func(ev models.Event) { all.Add(1) })

	ch.Connect(context.Background())

	waitFor(t, func() bool { return typed.Load() == 1 && all.Load() == 1 }, "event not dispatched")
	assert.Equal(t, "Bearer at", ws.header(common.AuthorizationHeader))
}

func TestConnect_DevIdentityHeader(t *testing.T) {
	ws := newWSServer(t, drain)

	ch := NewChannel(ws.url(), &staticTokens{}, &logging.NopLogger{}, WithDevIdentity("dev@example.com"))
	t.Cleanup(ch.Disconnect)

	ch.Connect(context.Background())

	waitFor(t, func() bool { return ws.conns.Load() == 1 }, "no connection")
	assert.Equal(t, "dev@example.com", ws.header(common.DevIdentityHeader))
}

func TestReadLoop_DropsMalformedFrames(t *testing.T) {
	ws := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"data":{}}`)) // no type
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"task:updated"}`))
		drain(conn)
	})

	ch := NewChannel(ws.url(), &staticTokens{token: "at"}, &logging.NopLogger{})
	t.Cleanup(ch.Disconnect)

	var got atomic.Int32
	ch.SubscribeAll(func(ev models.Event) {
		require.Equal(t, models.EventTaskUpdated, ev.Type)
		got.Add(1)
	})

	ch.Connect(context.Background())

	waitFor(t, func() bool { return got.Load() == 1 }, "valid frame after garbage not dispatched")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), got.Load())
}

func TestReadLoop_HandlerPanicIsIsolated(t *testing.T) {
	ws := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"task:created"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"task:created"}`))
		drain(conn)
	})

	ch := NewChannel(ws.url(), &staticTokens{token: "at"}, &logging.NopLogger{})
	t.Cleanup(ch.Disconnect)

	var calls atomic.Int32
	ch.Subscribe(models.EventTaskCreated, func(ev models.Event) {
		calls.Add(1)
		panic("handler bug")
	})

	ch.Connect(context.Background())

	waitFor(t, func() bool { return calls.Load() == 2 }, "panic killed the read loop")
}

func TestReconnect_AfterServerDrop(t *testing.T) {
	ws := newWSServer(t, func(conn *websocket.Conn) {
		conn.Close() // drop immediately
	})

	ch := NewChannel(ws.url(), &staticTokens{token: "at"}, &logging.NopLogger{}, WithReconnectDelay(20*time.Millisecond))
	t.Cleanup(ch.Disconnect)

	ch.Connect(context.Background())

	waitFor(t, func() bool { return ws.conns.Load() >= 3 }, "channel did not keep reconnecting")
}

func TestConnectivity_NotifiesOnOpenAndClose(t *testing.T) {
	var served atomic.Int32
	ws := newWSServer(t, func(conn *websocket.Conn) {
		if served.Add(1) == 1 {
			conn.Close() // first connection dropped by the server
			return
		}
		drain(conn)
	})

	ch := NewChannel(ws.url(), &staticTokens{token: "at"}, &logging.NopLogger{}, WithReconnectDelay(20*time.Millisecond))

	var ups, downs atomic.Int32
	ch.SubscribeConnectivity(func(connected bool) {
		if connected {
			ups.Add(1)
		} else {
			downs.Add(1)
		}
	})

	ch.Connect(context.Background())

	waitFor(t, func() bool { return ups.Load() >= 2 && downs.Load() >= 1 },
		"expected connected, dropped and reconnected notifications")

	ch.Disconnect()
	waitFor(t, func() bool { return downs.Load() >= 2 }, "Disconnect did not notify")
}

func TestDisconnect_CancelsReconnect(t *testing.T) {
	ws := newWSServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	ch := NewChannel(ws.url(), &staticTokens{token: "at"}, &logging.NopLogger{}, WithReconnectDelay(100*time.Millisecond))
	ch.Connect(context.Background())

	waitFor(t, func() bool { return ws.conns.Load() == 1 }, "no initial connection")
	ch.Disconnect()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), ws.conns.Load(), "reconnect fired after Disconnect")
}
