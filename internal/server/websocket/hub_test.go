package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/internal/server/events"
)

func newHub() *Hub {
	logger := zerolog.Nop()
	return NewHub(&logger)
}

// dial serves h on a test server and connects one client to it.
func dial(t *testing.T, h *Hub, query string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn, r.URL.Query().Get("organization"))
	}))
	t.Cleanup(ts.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+query, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func read(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestServeSendsClientID(t *testing.T) {
	h := newHub()
	conn := dial(t, h, "/")

	first := read(t, conn)
	assert.Equal(t, events.ClientConnected, first.Type)
	data, ok := first.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["client_id"])
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSendFollowsOrganization(t *testing.T) {
	h := newHub()
	conn := dial(t, h, "/?organization=org-1")
	read(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Send(events.Event{Type: events.SyncCompleted, Organization: "org-2"}))
	require.NoError(t, h.Send(events.Event{Type: events.SyncFailed, Organization: "org-1"}))

	got := read(t, conn)
	assert.Equal(t, events.SyncFailed, got.Type)
	assert.Equal(t, "org-1", got.Organization)
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := newHub()
	conn := dial(t, h, "/")
	read(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Close())
	assert.Zero(t, h.ClientCount())

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
