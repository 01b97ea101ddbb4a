package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/internal/domain/models"
)

func dial(t *testing.T, h *Hub, userID string, first *models.DashboardSnapshot) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, userID, first)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestHub_FirstSnapshotThenBroadcast(t *testing.T) {
	h := NewHub()
	defer h.Close()

	conn := dial(t, h, "u1", &models.DashboardSnapshot{UserID: "u1"})

	m := readSnapshot(t, conn)
	assert.Equal(t, "snapshot", m.Type)
	require.NotNil(t, m.Data)
	assert.Equal(t, "u1", m.Data.UserID)

	require.Eventually(t, func() bool { return len(h.Users()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"u1"}, h.Users())

	h.Broadcast("u2", &models.DashboardSnapshot{UserID: "u2"})
	h.Broadcast("u1", &models.DashboardSnapshot{UserID: "u1", Warnings: []models.Warning{{Source: "x"}}})

	m = readSnapshot(t, conn)
	assert.Len(t, m.Data.Warnings, 1)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	h := NewHub()
	defer h.Close()

	conn := dial(t, h, "", nil)
	require.Eventually(t, func() bool { return len(h.Users()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return len(h.Users()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAllowOrigins(t *testing.T) {
	check := AllowOrigins([]string{"https://dash.example.com/"})

	r := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	assert.True(t, check(r), "no origin header")

	r.Header.Set("Origin", "https://DASH.example.com")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))
}
