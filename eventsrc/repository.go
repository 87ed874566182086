package eventsrc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository handles the loading and saving of event-sourced aggregates.
// Streams are keyed by the aggregate's identifier.
type Repository[T Aggregate] struct {
	store             Store
	newEmptyAggregate func() T
}

// NewRepository creates a new generic repository for a specific aggregate type.
func NewRepository[T Aggregate](store Store, newEmptyAggregate func() T) *Repository[T] {
	return &Repository[T]{
		store:             store,
		newEmptyAggregate: newEmptyAggregate,
	}
}

// StreamID derives the stream identifier for an aggregate identifier.
func StreamID(id uuid.UUID) string { return id.String() }

// Load retrieves an aggregate by replaying its stream from the event store.
// It returns ErrNotFound when the stream has no events.
func (r *Repository[T]) Load(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T

	history, err := r.store.LoadStream(ctx, StreamID(id), 1)
	if err != nil {
		return zero, fmt.Errorf("failed to load stream for aggregate %s: %w", id, err)
	}
	if len(history) == 0 {
		return zero, fmt.Errorf("aggregate %s: %w", id, ErrNotFound)
	}

	aggregate := r.newEmptyAggregate()
	if err := aggregate.LoadFromHistory(ctx, history); err != nil {
		return zero, fmt.Errorf("failed to rehydrate aggregate %s: %w", id, err)
	}
	return aggregate, nil
}

// Save appends the aggregate's uncommitted events under its current version
// as the concurrency guard. On success the in-memory version advances and the
// buffer is cleared. On ErrConcurrency the caller must reload, re-apply its
// intended change against the fresh state, and retry; there is no automatic
// merge.
func (r *Repository[T]) Save(ctx context.Context, aggregate T) error {
	pending := aggregate.PendingEvents()
	if len(pending) == 0 {
		return nil
	}

	newVersion, err := r.store.Append(ctx, StreamID(aggregate.ID()), aggregate.Version(), pending)
	if err != nil {
		var conflict ErrConcurrency
		if errors.As(err, &conflict) {
			return err
		}
		return fmt.Errorf("failed to save aggregate %s: %w", aggregate.ID(), err)
	}

	aggregate.SetVersion(newVersion)
	aggregate.ClearPendingEvents()
	return nil
}
