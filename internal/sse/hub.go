// Package sse fans out server-sent events to connected subscribers.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Event types published on the report events stream.
const (
	EventGeneration = "generation"
	EventRecent     = "recent"
	EventAlert      = "alert"
)

const defaultBufferSize = 16

// Event represents an SSE event with a type and payload
type Event struct {
	Type    string
	Payload []byte
}

// DroppedCounter is notified whenever an event is dropped for a slow subscriber.
type DroppedCounter interface {
	RecordSSEDropped()
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithDroppedCounter reports dropped events to c.
func WithDroppedCounter(c DroppedCounter) Option {
	return func(h *Hub) {
		h.dropped = c
	}
}

// Hub is a minimal SSE broadcaster. Broadcasting never blocks; events for a
// subscriber whose buffer is full are dropped.
type Hub struct {
	mu         sync.Mutex
	clients    map[chan Event]struct{}
	closed     bool
	bufferSize int
	dropped    DroppedCounter

	droppedTotal atomic.Uint64
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[chan Event]struct{}),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetDroppedCounter replaces the dropped-event counter.
func (h *Hub) SetDroppedCounter(c DroppedCounter) {
	h.mu.Lock()
	h.dropped = c
	h.mu.Unlock()
}

// Subscribe returns a channel for events and a cleanup function. Both are
// nil once the hub is closed. The cleanup function may be called more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil
	}

	ch := make(chan Event, h.bufferSize)
	h.clients[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		})
	}
}

// Broadcast sends data to all subscribers (default "message" event type)
func (h *Hub) Broadcast(payload []byte) {
	h.BroadcastEvent("", payload)
}

// BroadcastEvent sends a named event to all subscribers
func (h *Hub) BroadcastEvent(eventType string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- Event{Type: eventType, Payload: payload}:
		default:
			h.droppedTotal.Add(1)
			if h.dropped != nil {
				h.dropped.RecordSSEDropped()
			}
		}
	}
}

// PublishJSON marshals v and broadcasts it as a named event.
func (h *Hub) PublishJSON(eventType string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	h.BroadcastEvent(eventType, payload)
	return nil
}

// ClientCount returns the number of current subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// DroppedTotal returns the number of events dropped since the hub was created.
func (h *Hub) DroppedTotal() uint64 {
	return h.droppedTotal.Load()
}

// Close disconnects every subscriber and returns how many were closed.
// Later calls return 0.
func (h *Hub) Close() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	n := len(h.clients)
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	return n
}

// WriteEvent writes evt to w in text/event-stream framing.
func WriteEvent(w io.Writer, evt Event) error {
	if evt.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", evt.Type); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", evt.Payload)
	return err
}
