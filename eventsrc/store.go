package eventsrc

import (
	"context"
)

// Store is the append-only, versioned, per-stream durable event log.
//
// Implementations must guarantee:
//   - Events within a stream are stored in order with gapless 1-based versions.
//   - Appends are committed atomically per batch.
//   - Global sequence numbers form a single total order across all streams,
//     consistent with each stream's own version order.
type Store interface {
	// Initialize performs idempotent setup of the backing schema. It is safe
	// to call on every process start, before any append or read.
	Initialize(ctx context.Context) error

	// Append commits events to a stream if and only if the stream's current
	// version equals expectedVersion. expectedVersion == 0 means the stream
	// must not yet exist. On success it returns the stream's new version.
	// A version mismatch returns ErrConcurrency.
	Append(ctx context.Context, streamID string, expectedVersion int, events []Event) (int, error)

	// LoadStream returns a stream's events with version >= fromVersion,
	// ascending by version. A stream with no events yields an empty slice,
	// not an error.
	LoadStream(ctx context.Context, streamID string, fromVersion int) ([]StoredEvent, error)

	// ReadAll returns up to limit events across all streams with
	// GlobalSequence >= fromGlobalSequence, ascending by global sequence.
	// This is the feed projections consume; it supports resuming from an
	// arbitrary checkpoint.
	ReadAll(ctx context.Context, fromGlobalSequence int64, limit int) ([]StoredEvent, error)
}
