// Package eventbus is the in-process implementation of domain.EventBus.
package eventbus

import (
	"sync"

	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/logger"
)

// InProcessEventBus dispatches events synchronously on Publish and keeps a
// count of published events per type.
type InProcessEventBus struct {
	handlers    map[domain.EventType][]domain.EventHandler
	allHandlers []domain.EventHandler
	counts      map[domain.EventType]int64
	mu          sync.RWMutex
	countMu     sync.Mutex
	closed      bool
}

// New creates a new in-process event bus.
func New() *InProcessEventBus {
	return &InProcessEventBus{
		handlers:    make(map[domain.EventType][]domain.EventHandler),
		allHandlers: make([]domain.EventHandler, 0),
		counts:      make(map[domain.EventType]int64),
	}
}

// Publish dispatches an event to all matching handlers.
// Handlers for the specific event type are called first, then global handlers.
func (b *InProcessEventBus) Publish(event domain.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	typed := append([]domain.EventHandler(nil), b.handlers[event.EventType()]...)
	global := append([]domain.EventHandler(nil), b.allHandlers...)
	b.mu.RUnlock()

	b.countMu.Lock()
	b.counts[event.EventType()]++
	b.countMu.Unlock()

	for _, handler := range typed {
		handler(event)
	}
	for _, handler := range global {
		handler(event)
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InProcessEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler that receives every event.
func (b *InProcessEventBus) SubscribeAll(handler domain.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.allHandlers = append(b.allHandlers, handler)
}

// Close marks the bus as closed. No more events will be dispatched.
func (b *InProcessEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
}

// PublishAll dispatches multiple events (e.g., from AggregateRoot.PullEvents).
func (b *InProcessEventBus) PublishAll(events []domain.Event) {
	for _, event := range events {
		b.Publish(event)
	}
}

// Counts returns a snapshot of published events per type.
func (b *InProcessEventBus) Counts() map[string]int64 {
	b.countMu.Lock()
	defer b.countMu.Unlock()

	out := make(map[string]int64, len(b.counts))
	for t, n := range b.counts {
		out[string(t)] = n
	}
	return out
}

// HandlerCount returns the total number of registered handlers (for diagnostics).
func (b *InProcessEventBus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.allHandlers)
	for _, handlers := range b.handlers {
		count += len(handlers)
	}
	return count
}

// LogSink logs every event at debug level.
func LogSink(event domain.Event) {
	logger.DebugCF("events", "Domain event", map[string]interface{}{
		"type":         string(event.EventType()),
		"aggregate_id": event.AggregateID().String(),
		"data":         event.Payload(),
	})
}

// Verify interface compliance at compile time.
var _ domain.EventBus = (*InProcessEventBus)(nil)
