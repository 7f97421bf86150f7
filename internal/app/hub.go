package app

import (
	"context"
	"sync"
	"time"
)

// EventKind labels a live-update frame.
type EventKind string

const (
	EventConnected         EventKind = "connected"
	EventLeaderboardUpdate EventKind = "leaderboard-update"
	EventSettingsUpdate    EventKind = "settings-update"
	EventHeartbeat         EventKind = "heartbeat"
)

// Event is one frame pushed to live viewers.
type Event struct {
	Kind    EventKind `json:"type"`
	Payload any       `json:"payload"`
}

// Hub fans state-change events out to every subscribed live viewer.
// Subscribers receive only events published after they subscribe; there is
// no backlog and the set is rebuilt empty on restart.
type Hub struct {
	heartbeatEvery time.Duration
	now            func() time.Time

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewHub creates a hub with the given heartbeat interval.
func NewHub(heartbeatEvery time.Duration) *Hub {
	return &Hub{
		heartbeatEvery: heartbeatEvery,
		now:            time.Now,
		subscribers:    make(map[chan Event]struct{}),
	}
}

// Subscribe registers a viewer. The caller must invoke the returned cancel
// function when the transport closes to release the reference.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every current subscriber. A subscriber whose
// buffer is full has its oldest frame dropped so a slow viewer never blocks
// the others; a later full snapshot self-corrects any dropped one.
func (h *Hub) Publish(kind EventKind, payload any) {
	event := Event{Kind: kind, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Run emits heartbeat frames until ctx is cancelled, keeping intermediaries
// from closing idle connections and flushing out half-open viewers.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Publish(EventHeartbeat, map[string]int64{"time": h.now().UnixMilli()})
		}
	}
}

// SubscriberCount reports how many viewers are currently connected.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
