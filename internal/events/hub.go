package events

import (
	"sync"
	"time"
)

const defaultSubscriberBuffer = 16

// Hub broadcasts events to in-process subscribers such as SSE streams. A
// subscriber that falls behind loses events instead of slowing the emitter.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
	now    func() time.Time
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   map[chan Event]struct{}{},
		buffer: buffer,
		now:    time.Now,
	}
}

// Subscribe returns the event channel and a cancel func that must be called
// once the subscriber is gone.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Emit(name string, payload any) {
	ev := Event{Name: name, Payload: payload, At: h.now()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
