package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/synclist/internal/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srvURL, devUser string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws"
	header := http.Header{}
	header.Set(common.DevIdentityHeader, devUser)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEventType(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(frame, &event))
	return event.Type
}

func TestWS_ConnectedFrame(t *testing.T) {
	srv, _ := newTestServer(t, true)

	conn := dialWS(t, srv.URL, "dev@example.com")
	assert.Equal(t, "connected", readEventType(t, conn))
}

func TestWS_RejectsUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t, true)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_BroadcastOnPush(t *testing.T) {
	srv, _ := newTestServer(t, true)

	// Two devices of the same account.
	conn1 := dialWS(t, srv.URL, "dev@example.com")
	conn2 := dialWS(t, srv.URL, "dev@example.com")
	require.Equal(t, "connected", readEventType(t, conn1))
	require.Equal(t, "connected", readEventType(t, conn2))

	push := map[string]any{
		"workspaceId": "ws1",
		"todos": []map[string]any{
			{"id": "t1", "text": "Buy milk", "completed": false, "createdAt": 1, "updatedAt": 2},
		},
		"lastSyncAt": 0,
	}
	resp, _ := doRequest(t, srv, testRequest{
		method: http.MethodPost, path: "/sync", body: push, devUser: "dev@example.com",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, "task:updated", readEventType(t, conn1))
	assert.Equal(t, "task:updated", readEventType(t, conn2))
}

func TestWS_NoCrossUserBroadcast(t *testing.T) {
	srv, _ := newTestServer(t, true)

	other := dialWS(t, srv.URL, "other@example.com")
	require.Equal(t, "connected", readEventType(t, other))

	push := map[string]any{"workspaceId": "ws1", "todos": []map[string]any{}, "lastSyncAt": 0}
	resp, _ := doRequest(t, srv, testRequest{
		method: http.MethodPost, path: "/sync", body: push, devUser: "dev@example.com",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The other account's connection stays quiet.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}
