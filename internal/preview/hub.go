package preview

import "sync"

// maxSubscribers limits concurrent state streams.
const maxSubscribers = 50

// Hub fans preview state changes out to subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan State]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan State]struct{})}
}

// Subscribe returns a channel of state changes and an unsubscribe function.
// When the hub is full the returned channel is already closed.
func (h *Hub) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	h.mu.Lock()
	if len(h.subs) >= maxSubscribers {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Publish sends st to every subscriber without blocking.
func (h *Hub) Publish(st State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- st:
		default:
			// Slow readers miss intermediate states.
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
