package events

import (
	"sync"

	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// Hub fans workflow events out to in-process subscribers. Publishing never
// blocks; a subscriber that falls behind loses events rather than stalling
// step processing
type Hub struct {
	subs   util.Set[chan *api.Event]
	mu     sync.Mutex
	closed bool
}

const subscriberBuffer = 64

// NewHub creates an event hub with no subscribers
func NewHub() *Hub {
	return &Hub{subs: util.Set[chan *api.Event]{}}
}

// Subscribe registers a new subscriber and returns its channel along with a
// cancel function. The channel is closed on cancel or hub shutdown
func (h *Hub) Subscribe() (<-chan *api.Event, func()) {
	ch := make(chan *api.Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs.Add(ch)

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.subs.Contains(ch) {
			h.subs.Remove(ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has buffer room
func (h *Hub) Publish(ev *api.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the hub down and closes all subscriber channels
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = util.Set[chan *api.Event]{}
}
