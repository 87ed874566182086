package eventsrc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Aggregate is the interface that event-sourced aggregates must implement.
type Aggregate interface {
	// ID returns the unique identifier of the aggregate.
	ID() uuid.UUID
	// AggregateType returns the type of the aggregate (e.g., "campaigns").
	AggregateType() AggregateType
	// Version returns the number of events durably applied to reconstruct
	// the current state. Buffered, uncommitted events do not count.
	Version() int
	// PendingEvents returns a snapshot of the new, uncommitted events.
	PendingEvents() []Event
	// ClearPendingEvents empties the uncommitted buffer after a successful commit.
	ClearPendingEvents()
	// SetVersion is used by the repository after a successful commit.
	SetVersion(version int)
	// LoadFromHistory rehydrates the aggregate's state from its stored stream.
	LoadFromHistory(ctx context.Context, history []StoredEvent) error
}

// AggregateRoot is a base implementation for event-sourced aggregates.
// Concrete aggregates embed it and wire their own apply and validate methods
// through NewAggregateRoot; the same apply fold runs both when an event is
// freshly recorded and when it is replayed from storage.
type AggregateRoot struct {
	id            uuid.UUID
	aggType       AggregateType
	version       int
	pending       []Event
	applyMethod   func(context.Context, Event) error
	validateState func() error
}

// NewAggregateRoot is a constructor for AggregateRoot. It requires references
// to the concrete aggregate's apply and validate methods.
func NewAggregateRoot(
	aggType AggregateType,
	applyMethod func(context.Context, Event) error,
	validateState func() error,
) *AggregateRoot {
	return &AggregateRoot{
		aggType:       aggType,
		applyMethod:   applyMethod,
		validateState: validateState,
	}
}

func (a *AggregateRoot) ID() uuid.UUID                { return a.id }
func (a *AggregateRoot) AggregateType() AggregateType { return a.aggType }
func (a *AggregateRoot) Version() int                 { return a.version }

// PendingEvents returns a copy of the uncommitted buffer so callers cannot
// mutate it behind the aggregate's back.
func (a *AggregateRoot) PendingEvents() []Event {
	pending := make([]Event, len(a.pending))
	copy(pending, a.pending)
	return pending
}

func (a *AggregateRoot) ClearPendingEvents() { a.pending = nil }

// Equals implements identity equality: two aggregates are equal iff their
// identifiers are equal.
func (a *AggregateRoot) Equals(other interface{ ID() uuid.UUID }) bool {
	return other != nil && a.id == other.ID()
}

// TrackChange records a new event by applying it to the in-memory state,
// validating the result, and adding it to the uncommitted buffer. The
// version is not advanced here; it counts committed events only.
//
// On error the event is not buffered, but the fold has already mutated the
// in-memory state, so the aggregate may no longer match its committed
// stream. Discard it and reload through the repository before recording
// further changes.
func (a *AggregateRoot) TrackChange(ctx context.Context, evt Event) error {
	if err := a.applyMethod(ctx, evt); err != nil {
		return fmt.Errorf("failed to apply event %s: %w", evt.EventType(), err)
	}
	if err := a.validateState(); err != nil {
		return fmt.Errorf("state validation failed after applying event %s: %w", evt.EventType(), err)
	}
	a.pending = append(a.pending, evt)
	return nil
}

// LoadFromHistory rehydrates the aggregate's state by decoding and applying a
// stream of stored events in version order. It does not validate the state,
// as historical events are assumed to be valid.
func (a *AggregateRoot) LoadFromHistory(ctx context.Context, history []StoredEvent) error {
	for _, stored := range history {
		evt, err := stored.Decode()
		if err != nil {
			return err
		}
		if err := a.applyMethod(ctx, evt); err != nil {
			return fmt.Errorf("failed to replay event %s at version %d: %w", stored.EventType, stored.Version, err)
		}
		a.version = stored.Version
	}
	return nil
}

// Setters used internally by apply methods of the concrete aggregate and by
// the repository after a successful commit.
func (a *AggregateRoot) SetID(id uuid.UUID)     { a.id = id }
func (a *AggregateRoot) SetVersion(version int) { a.version = version }
