package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

const DefaultBuffer = 64

// Hub fans events out to in-process subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan domain.Event
	nextID  uint64
	origin  string
	dropped atomic.Int64
	relay   func(domain.Event)
}

// NewHub creates a hub tagging local events with origin. An empty origin gets a random one.
func NewHub(origin string) *Hub {
	if origin == "" {
		origin = uuid.NewString()
	}
	return &Hub{
		subs:   make(map[uint64]chan domain.Event),
		origin: origin,
	}
}

// OnPublish registers a forwarder for locally published events, e.g. a cross-process relay.
func (h *Hub) OnPublish(fn func(domain.Event)) {
	h.mu.Lock()
	h.relay = fn
	h.mu.Unlock()
}

func (h *Hub) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan domain.Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish stamps and delivers a locally produced event, then hands it to the relay.
func (h *Hub) Publish(event domain.Event) {
	if event.Origin == "" {
		event.Origin = h.origin
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	relay := h.deliver(event)
	if relay != nil && event.Origin == h.origin {
		relay(event)
	}
}

// Deliver hands a remote event to local subscribers without relaying it again.
func (h *Hub) Deliver(event domain.Event) {
	if event.Origin == h.origin {
		return
	}
	h.deliver(event)
}

func (h *Hub) deliver(event domain.Event) func(domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.dropped.Add(1)
		}
	}
	return h.relay
}

func (h *Hub) Origin() string { return h.origin }

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts deliveries skipped because a subscriber was slow.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
