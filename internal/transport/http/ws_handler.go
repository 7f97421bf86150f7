package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiniela-service/internal/app"
)

// LiveHandler upgrades viewers to a websocket and forwards hub events.
type LiveHandler struct {
	hub      *app.Hub
	upgrader websocket.Upgrader
}

func NewLiveHandler(hub *app.Hub) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS subscribes the connection to live updates. The viewer gets a
// `connected` frame first, then only events published after the subscribe;
// closing the transport releases the subscription immediately.
func (h *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	if err := conn.WriteJSON(app.Event{Kind: app.EventConnected, Payload: map[string]string{"status": "connected"}}); err != nil {
		return
	}

	// The reader only watches for transport closure; cancel closes the
	// events channel and stops the write loop below.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
