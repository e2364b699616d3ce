package domain

import "time"

// ---------------------------------------------------------------------------
// Domain events
// ---------------------------------------------------------------------------

// EventType classifies domain events for routing and filtering.
type EventType string

// Bounded context prefixes keep event names globally unique.
const (
	// Movie context
	EventMovieCreated EventType = "movie.created"
	EventMovieUpdated EventType = "movie.updated"
	EventMovieDeleted EventType = "movie.deleted"

	// Component context
	EventComponentCollected EventType = "component.collected"
	EventComponentExpired   EventType = "component.expired"
	EventComponentFailed    EventType = "component.subscribe_failed"

	// Conversation context
	EventConversationExchanged   EventType = "conversation.exchanged"
	EventConversationRateLimited EventType = "conversation.rate_limited"
	EventConversationFailed      EventType = "conversation.failed"

	// System
	EventSystemStartup  EventType = "system.startup"
	EventSystemShutdown EventType = "system.shutdown"
)

// Event is the interface all domain events implement.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	// AggregateID is the id of whatever produced the event (movie id,
	// message id, conversation key).
	AggregateID() EntityID
	Payload() interface{}
}

// BaseEvent is the reusable Event implementation.
type BaseEvent struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	AggID     EntityID    `json:"aggregate_id"`
	EventData interface{} `json:"data,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() EntityID { return e.AggID }
func (e BaseEvent) Payload() interface{}  { return e.EventData }

// NewEvent creates a new domain event.
func NewEvent(eventType EventType, aggregateID EntityID, data interface{}) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		AggID:     aggregateID,
		EventData: data,
	}
}

// EventHandler processes a domain event. Handlers should be idempotent.
type EventHandler func(Event)

// EventBus dispatches domain events to registered handlers.
type EventBus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler EventHandler)
	SubscribeAll(handler EventHandler)
	Close()
}

// Publisher is the publishing half of EventBus. A nil Publisher is valid
// for PublishTo.
type Publisher interface {
	Publish(event Event)
}

// PublishTo publishes e on p when p is non-nil.
func PublishTo(p Publisher, e Event) {
	if p != nil {
		p.Publish(e)
	}
}
