package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majdjadalhaq/MovieValut/internal/notify"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) WebSocketMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsToast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	a := dialHub(t, hub)
	b := dialHub(t, hub)
	assert.Equal(t, "hello", readMessage(t, a).Type)
	assert.Equal(t, "hello", readMessage(t, b).Type)
	waitForClients(t, hub, 2)

	var n notify.Notifier = hub
	n.Notify(context.Background(), notify.FetchFailed("trending::page:1", "https://api/trending", errors.New("502")))

	for _, ws := range []*websocket.Conn{a, b} {
		msg := readMessage(t, ws)
		assert.Equal(t, "toast", msg.Type)
		payload, ok := msg.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, notify.FetchFailedMessage, payload["message"])
		assert.Equal(t, "error", payload["level"])
		assert.Equal(t, "trending::page:1", payload["key"])
		// the upstream URL and error stay server-side
		assert.NotContains(t, payload, "url")
		assert.NotContains(t, payload, "err")
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	ws := dialHub(t, hub)
	readMessage(t, ws)
	waitForClients(t, hub, 1)

	ws.Close()
	waitForClients(t, hub, 0)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	ws := dialHub(t, hub)
	readMessage(t, ws)
	waitForClients(t, hub, 1)

	cancel()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "connection should be closed by the hub")

	// notifying a stopped hub must not block
	done := make(chan struct{})
	go func() {
		hub.Notify(context.Background(), notify.Notification{Level: notify.LevelInfo, Message: "x"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked after shutdown")
	}
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(func(r *http.Request) bool { return r.Header.Get("Origin") == "http://localhost:5173" })
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
