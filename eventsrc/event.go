package eventsrc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AggregateType defines the type of an aggregate (e.g., "campaigns").
type AggregateType string

// Event is the interface that all domain events must implement.
// Versions are not part of the event itself: the store assigns them
// at commit time, relative to the expected version of the append.
type Event interface {
	EventID() uuid.UUID
	AggregateID() uuid.UUID
	AggregateType() AggregateType
	EventType() string
	OccurredAt() time.Time
}

// BaseEvent provides a common implementation for the Event interface.
// Domain events can embed this struct to reduce boilerplate.
type BaseEvent struct {
	ID      uuid.UUID     `json:"id"`
	AggID   uuid.UUID     `json:"aggregate_id"`
	AggType AggregateType `json:"aggregate_type"`
	At      time.Time     `json:"occurred_at"`
}

// NewBaseEvent builds the embeddable part of a fresh domain event.
func NewBaseEvent(aggType AggregateType, aggID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:      uuid.New(),
		AggID:   aggID,
		AggType: aggType,
		At:      time.Now().UTC(),
	}
}

func (b BaseEvent) EventID() uuid.UUID           { return b.ID }
func (b BaseEvent) AggregateID() uuid.UUID       { return b.AggID }
func (b BaseEvent) AggregateType() AggregateType { return b.AggType }
func (b BaseEvent) OccurredAt() time.Time        { return b.At }

// StoredEvent is a committed event plus the metadata the store assigned to it.
// Version is the 1-based, gapless position within its stream; GlobalSequence
// is strictly increasing across all streams and is the order projections
// consume. Committed events are never mutated or deleted.
type StoredEvent struct {
	StreamID       string
	Version        int
	GlobalSequence int64
	EventType      string
	Payload        json.RawMessage
	Metadata       json.RawMessage
	RecordedAt     time.Time
}

// Decode reconstructs the domain event from the stored payload using the
// event registry. Unregistered event types decode to *UnknownEvent so that
// consumers deployed before a new event type was introduced keep working.
func (s StoredEvent) Decode() (Event, error) {
	evt := CreateEvent(s.EventType)
	if unknown, ok := evt.(*UnknownEvent); ok {
		unknown.Payload = s.Payload
		return unknown, nil
	}
	if err := json.Unmarshal(s.Payload, evt); err != nil {
		return nil, ErrSerialization{EventType: s.EventType, Err: err}
	}
	return evt, nil
}

// UnknownEvent is the forward-compatibility fallback for event types that
// are not registered in this process. It carries the raw payload untouched.
type UnknownEvent struct {
	BaseEvent
	Type    string          `json:"-"`
	Payload json.RawMessage `json:"-"`
}

func (e *UnknownEvent) EventType() string { return e.Type }
