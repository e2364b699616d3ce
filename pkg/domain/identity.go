// Package domain provides the shared building blocks for CineBot's bounded
// contexts: identities, timestamps, aggregate roots, events and
// specifications.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Entity base
// ---------------------------------------------------------------------------

// EntityID is a typed identifier. Entities use UUIDv4 strings.
type EntityID string

// NewID generates a random UUIDv4 identifier.
func NewID() EntityID {
	return EntityID(uuid.NewString())
}

// ParseID validates s as a UUID.
func ParseID(s string) (EntityID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return EntityID(u.String()), nil
}

func (id EntityID) String() string { return string(id) }

// IsZero returns true if the ID is empty.
func (id EntityID) IsZero() bool { return id == "" }

// ---------------------------------------------------------------------------
// Timestamp value object
// ---------------------------------------------------------------------------

// Timestamp wraps time.Time, always in UTC.
type Timestamp struct {
	time.Time
}

// Now returns the current UTC timestamp.
func Now() Timestamp { return Timestamp{time.Now().UTC()} }

// TimestampFrom wraps an existing time.Time.
func TimestampFrom(t time.Time) Timestamp { return Timestamp{t.UTC()} }

// ---------------------------------------------------------------------------
// Aggregate root base
// ---------------------------------------------------------------------------

// AggregateRoot records domain events raised during a unit of work so they
// can be dispatched after persistence.
type AggregateRoot struct {
	id     EntityID
	events []Event
}

func (a *AggregateRoot) ID() EntityID { return a.id }

// SetID sets the aggregate's identity (used during reconstitution).
func (a *AggregateRoot) SetID(id EntityID) { a.id = id }

// RecordEvent appends a domain event to be dispatched after persistence.
func (a *AggregateRoot) RecordEvent(e Event) {
	a.events = append(a.events, e)
}

// PullEvents returns and clears all pending domain events.
func (a *AggregateRoot) PullEvents() []Event {
	events := a.events
	a.events = nil
	return events
}

func (a *AggregateRoot) HasPendingEvents() bool {
	return len(a.events) > 0
}
