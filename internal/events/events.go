// Package events carries session store notifications to interested parties:
// in-process subscribers (SSE handlers) and, optionally, a NATS subject for
// out-of-process listeners.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/chatframe/sessiond/internal/model"
)

// Type identifies a store notification.
type Type string

const (
	TypeSessionStarted  Type = "session.started"
	TypeSessionSwitched Type = "session.switched"
	TypeMessageAppended Type = "message.appended"
	TypeWaitingChanged  Type = "waiting.changed"
	TypeScrollRequested Type = "scroll.requested"
)

// Event is a single store notification.
type Event struct {
	Type      Type           `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Message   *model.Message `json:"message,omitempty"`
	Waiting   bool           `json:"waiting,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier delivers store notifications. Implementations must not block the
// store for long; delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// Hub is an in-process Notifier fanning events out to subscriber callbacks.
type Hub struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(Event)
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int]func(Event)),
	}
}

// Subscribe registers a callback and returns a function that removes it.
func (h *Hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}
}

// Publish implements Notifier. Callbacks run synchronously; delivery order
// across subscribers is not guaranteed.
func (h *Hub) Publish(ctx context.Context, event Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

// multi fans a notification out to several notifiers.
type multi []Notifier

// Multi combines notifiers into one. Nil entries are skipped.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Publish implements Notifier.
func (m multi) Publish(ctx context.Context, event Event) {
	for _, n := range m {
		n.Publish(ctx, event)
	}
}
