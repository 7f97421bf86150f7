package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiniela-service/internal/app"
)

func TestLiveStreamReceivesUpdates(t *testing.T) {
	server, hub := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/api/leaderboard/live"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// First frame is always `connected`.
	if kind := readKind(t, conn); kind != string(app.EventConnected) {
		t.Fatalf("expected connected, got %s", kind)
	}

	// An operator mutation reaches the viewer.
	doJSON(t, server, http.MethodPost, "/api/admin/answers/1", testAdminPIN,
		map[string]string{"answer": "Seahawks"}, nil)
	if kind := readKind(t, conn); kind != string(app.EventLeaderboardUpdate) {
		t.Fatalf("expected leaderboard-update, got %s", kind)
	}

	// Closing the transport releases the subscription.
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription leaked, %d still registered", hub.SubscriberCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readKind(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type
}
