package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types published by the presence subsystem.
const (
	TypePresenceRegistered   = "presence.registered"
	TypePresenceHeartbeat    = "presence.heartbeat"
	TypePresenceDeregistered = "presence.deregistered"
	TypePresenceExpired      = "presence.expired"
)

// Event is one presence change broadcast to watchers.
type Event struct {
	Type      string      `json:"type"`
	Charname  string      `json:"charname"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans events out to subscribers. Slow subscribers are dropped rather
// than allowed to block publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	bufferSize  int
	logger      *zap.Logger
}

// NewHub creates an event hub with the given per-subscriber buffer size.
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = 16
	}
	return &Hub{
		subscribers: make(map[int]chan Event),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers a new watcher. The returned cancel function must be
// called when the watcher goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufferSize)
	h.subscribers[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Warn("Event dropped for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("type", event.Type),
			)
		}
	}
}

// SubscriberCount returns the number of active watchers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
