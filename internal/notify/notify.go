// Package notify delivers the dashboard's transient user notifications.
package notify

import (
	"log"
	"sync"
	"time"

	"vizninja/ports"
)

// Log writes every notification to the standard logger.
type Log struct{}

func (Log) Notify(n ports.Notification) {
	log.Printf("[Notify] %s: %s", n.Level, n.Message)
}

// Func adapts a function to ports.Notifier.
type Func func(ports.Notification)

func (f Func) Notify(n ports.Notification) { f(n) }

// Multi fans a notification out to several notifiers in order.
type Multi []ports.Notifier

func (m Multi) Notify(n ports.Notification) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Event is a notification stamped with the time it was raised.
type Event struct {
	ports.Notification
	At time.Time `json:"at"`
}

// Hub keeps the most recent notifications and pushes new ones to
// subscribers. Slow subscribers miss events rather than block Notify.
type Hub struct {
	mu       sync.RWMutex
	recent   []Event
	capacity int
	subs     map[chan Event]struct{}
	now      func() time.Time
}

// NewHub creates a hub remembering up to capacity notifications.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 20
	}
	return &Hub{
		capacity: capacity,
		subs:     make(map[chan Event]struct{}),
		now:      time.Now,
	}
}

func (h *Hub) Notify(n ports.Notification) {
	ev := Event{Notification: n, At: h.now()}

	h.mu.Lock()
	h.recent = append(h.recent, ev)
	if len(h.recent) > h.capacity {
		h.recent = append([]Event(nil), h.recent[len(h.recent)-h.capacity:]...)
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[Notify] Subscriber channel full, dropping %s notification", n.Level)
		}
	}
	h.mu.Unlock()
}

// Recent returns the remembered notifications, newest last.
func (h *Hub) Recent() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Event(nil), h.recent...)
}

// Subscribe returns a channel of future notifications and a function that
// unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
