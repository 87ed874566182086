// Package projection derives queryable read models from the committed event
// stream. A Manager runs each registered Projection on its own goroutine,
// feeding it stored events in global-sequence order and persisting a
// per-projection checkpoint so restarts resume without reprocessing or
// skipping.
package projection

import (
	"context"
	"fmt"

	"github.com/omnicamp/eventcore/eventsrc"
)

// Projection maps event types to mutations of a read model stored outside the
// event log. Apply must be idempotent at the read-model level: the manager
// delivers at least once, and a crash between the read-model write and the
// checkpoint write causes redelivery.
type Projection interface {
	// Name identifies the projection; it keys the persisted checkpoint.
	Name() string
	// EventTypes lists the event types this projection handles. An empty
	// slice means every event is handled.
	EventTypes() []string
	// Apply folds one stored event into the read model. It runs inside the
	// same transaction as the checkpoint update.
	Apply(ctx context.Context, evt eventsrc.StoredEvent) error
	// Reset clears the read model ahead of a rebuild from sequence zero.
	Reset(ctx context.Context) error
}

// CheckpointStore persists the last processed global sequence per projection.
type CheckpointStore interface {
	// Load returns the projection's checkpoint, 0 when none exists yet.
	Load(ctx context.Context, projectionName string) (int64, error)
	// Save persists the checkpoint. When called inside a transaction managed
	// by the Transactor it must take part in that transaction.
	Save(ctx context.Context, projectionName string, globalSequence int64) error
}

// TransactionalHandler defines a function that executes within a transaction.
type TransactionalHandler func(ctx context.Context) error

// Transactor defines an interface for an object that can execute a function
// within a transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn TransactionalHandler) error
}

// ApplyError reports a poison event: a projection apply that kept failing
// after bounded retries. The checkpoint is not advanced past the event.
type ApplyError struct {
	Projection     string
	GlobalSequence int64
	Err            error
}

func (e ApplyError) Error() string {
	return fmt.Sprintf("projection %s failed to apply event at global sequence %d: %v",
		e.Projection, e.GlobalSequence, e.Err)
}

func (e ApplyError) Unwrap() error { return e.Err }
