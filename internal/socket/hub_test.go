package socket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dial opens a client connection and returns the server side of it.
func dial(t *testing.T) (clientConn, serverConn *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, <-serverConns
}

func readWithin(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestHub_SendToFacility(t *testing.T) {
	hub := NewHub(zap.NewNop())
	clientA, serverA := dial(t)
	clientB, serverB := dial(t)
	_, serverOther := dial(t)
	hub.Register("u-a1", "fac-a", serverA)
	hub.Register("u-a2", "fac-a", serverB)
	hub.Register("u-b1", "fac-b", serverOther)

	sent, err := hub.SendToFacility("fac-a", []byte("hello"))

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, "hello", readWithin(t, clientA))
	assert.Equal(t, "hello", readWithin(t, clientB))
}

func TestHub_UnregisterIgnoresStaleConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	firstClient, first := dial(t)
	_, second := dial(t)

	hub.Register("u-a", "fac-a", first)
	hub.Register("u-a", "fac-a", second)
	hub.Unregister("u-a", first)
	assert.Equal(t, 1, hub.Connected())

	// the replaced connection is closed, so its client sees the socket go away
	require.NoError(t, firstClient.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := firstClient.ReadMessage()
	assert.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "replaced connection was left open")
	}

	hub.Unregister("u-a", second)
	assert.Equal(t, 0, hub.Connected())
}

func TestHub_SendToOfflineUser(t *testing.T) {
	hub := NewHub(zap.NewNop())

	assert.NoError(t, hub.Send("nobody", []byte("hi")))
	sent, err := hub.SendToFacility("fac-x", []byte("hi"))
	assert.NoError(t, err)
	assert.Zero(t, sent)
}

func TestHub_DropsClientThatStopsReading(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.writeWait = 100 * time.Millisecond
	_, stalled := dial(t) // the client side is never read
	hub.Register("u-a", "fac-a", stalled)

	payload := make([]byte, 256<<10)
	failed := make(chan error, 1)
	go func() {
		for i := 0; i < 1000; i++ {
			if _, err := hub.SendToFacility("fac-a", payload); err != nil {
				failed <- err
				return
			}
		}
		failed <- nil
	}()

	select {
	case err := <-failed:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("SendToFacility kept blocking on a client that does not read")
	}
	assert.Zero(t, hub.Connected())

	sent, err := hub.SendToFacility("fac-a", []byte("hi"))
	assert.NoError(t, err)
	assert.Zero(t, sent)
}
