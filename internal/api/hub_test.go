package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/alerts/ws"
	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, h)
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastsAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub([]string{"http://localhost:3000"}, nil)
	go hub.Run(ctx)
	srv := httptest.NewServer(newTestRouter(nil, hub))
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://localhost:3000")
	require.NoError(t, err)
	defer conn.Close()
	waitClients(t, hub, 1)

	fired := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	alert := contracts.Alert{ID: "a1", FiredAt: fired, Kind: "hedge", Level: contracts.LevelCritical, Message: "KOSPI -4%"}
	require.NoError(t, hub.Notify(ctx, alert))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "alert", msg.Type)
	assert.Equal(t, fired.UnixMilli(), msg.Timestamp)

	var got contracts.Alert
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "hedge", got.Kind)
	assert.Equal(t, "KOSPI -4%", got.Message)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub([]string{"http://localhost:3000"}, nil)
	go hub.Run(ctx)
	srv := httptest.NewServer(newTestRouter(nil, hub))
	defer srv.Close()

	_, resp, err := dial(t, srv, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubNotifyWithoutClients(t *testing.T) {
	hub := NewHub(nil, nil)
	for i := 0; i < cap(hub.broadcast); i++ {
		require.NoError(t, hub.Notify(context.Background(), contracts.Alert{ID: "x"}))
	}
	assert.ErrorIs(t, hub.Notify(context.Background(), contracts.Alert{ID: "overflow"}), ErrHubFull)
}
