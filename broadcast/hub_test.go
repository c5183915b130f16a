package broadcast

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		init, err := json.Marshal(Message{Type: EventInit, Payload: map[string]string{"hello": "viewer"}})
		require.NoError(t, err)

		client := NewClient(hub, conn, init)
		client.Register()
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(server.Close)
	return hub, server
}

func dialTestHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func TestInitFrameArrivesFirst(t *testing.T) {
	hub, server := newTestHub(t)

	conn := dialTestHub(t, server)
	// Broadcast races the handshake; the init frame must still win.
	hub.Broadcast(Message{Type: EventScoreUpdate, Payload: ScoreUpdatePayload{ScoreA: 1}})

	first := readMessage(t, conn)
	require.Equal(t, EventInit, first.Type)
}

func TestBroadcastFansOutToAllViewers(t *testing.T) {
	hub, server := newTestHub(t)

	connA := dialTestHub(t, server)
	connB := dialTestHub(t, server)
	require.Equal(t, EventInit, readMessage(t, connA).Type)
	require.Equal(t, EventInit, readMessage(t, connB).Type)

	// Give the hub a moment to register both before broadcasting.
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast(Message{Type: EventScoreUpdate, Payload: ScoreUpdatePayload{ScoreA: 2, ScoreB: 1}})

	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readMessage(t, conn)
		require.Equal(t, EventScoreUpdate, msg.Type)
	}
}

func TestDisconnectedViewerDoesNotBlockOthers(t *testing.T) {
	hub, server := newTestHub(t)

	connA := dialTestHub(t, server)
	connB := dialTestHub(t, server)
	require.Equal(t, EventInit, readMessage(t, connA).Type)
	require.Equal(t, EventInit, readMessage(t, connB).Type)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, connA.Close())
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(Message{Type: EventTimerUpdate, Payload: TimerUpdatePayload{TimerBaseSeconds: 30}})
	msg := readMessage(t, connB)
	require.Equal(t, EventTimerUpdate, msg.Type)
}
