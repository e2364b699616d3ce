// Event bridge: wires the domain event bus into the WebSocket hub. Every
// published domain event fans out to all connected clients.
package api

import (
	"sync"

	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/infrastructure/eventbus"
	"github.com/sipeed/cinebot/pkg/logger"
)

// EventBridge forwards domain events to WebSocket clients.
type EventBridge struct {
	events *eventbus.InProcessEventBus
	hub    *WSHub
	once   sync.Once
}

func NewEventBridge(events *eventbus.InProcessEventBus, hub *WSHub) *EventBridge {
	return &EventBridge{events: events, hub: hub}
}

// Start subscribes the bridge to every event type. Calling it again does
// nothing.
func (eb *EventBridge) Start() {
	if eb.events == nil {
		return
	}
	eb.once.Do(func() {
		eb.events.SubscribeAll(eb.forward)
		logger.InfoC("events", "Event bridge started, forwarding domain events to WebSocket")
	})
}

func (eb *EventBridge) forward(event domain.Event) {
	eb.hub.Broadcast(string(event.EventType()), map[string]interface{}{
		"aggregate_id": event.AggregateID().String(),
		"occurred_at":  event.OccurredAt().Format("2006-01-02T15:04:05.000Z07:00"),
		"data":         event.Payload(),
	})
}
