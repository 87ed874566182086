// Package memory provides an in-process event store, checkpoint store, and
// transactor. It exists so the contract tests and local tooling can run
// without a database; production code uses infra/postgres.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/projection"
)

// Store keeps all streams and checkpoints in memory, guarded by one mutex.
// It implements eventsrc.Store, projection.CheckpointStore, and
// projection.Transactor.
type Store struct {
	mu          sync.Mutex
	streams     map[string][]eventsrc.StoredEvent
	log         []eventsrc.StoredEvent
	checkpoints map[string]int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		streams:     make(map[string][]eventsrc.StoredEvent),
		checkpoints: make(map[string]int64),
	}
}

// Initialize is a no-op; there is no schema to set up.
func (s *Store) Initialize(ctx context.Context) error { return nil }

// Append commits the batch atomically under the per-stream version check.
func (s *Store) Append(
	ctx context.Context,
	streamID string,
	expectedVersion int,
	events []eventsrc.Event,
) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, eventsrc.ErrStoreUnavailable{Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	if len(stream) != expectedVersion {
		return 0, eventsrc.ErrConcurrency{StreamID: streamID, ExpectedVersion: expectedVersion}
	}

	for i, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		metadata, err := json.Marshal(map[string]any{
			"event_id":       evt.EventID(),
			"aggregate_type": evt.AggregateType(),
		})
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event metadata: %w", err)
		}

		stored := eventsrc.StoredEvent{
			StreamID:       streamID,
			Version:        expectedVersion + i + 1,
			GlobalSequence: int64(len(s.log)) + 1,
			EventType:      evt.EventType(),
			Payload:        payload,
			Metadata:       metadata,
			RecordedAt:     time.Now().UTC(),
		}
		s.log = append(s.log, stored)
		stream = append(stream, stored)
	}
	s.streams[streamID] = stream

	return len(stream), nil
}

// LoadStream returns the stream's events with version >= fromVersion.
func (s *Store) LoadStream(ctx context.Context, streamID string, fromVersion int) ([]eventsrc.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, eventsrc.ErrStoreUnavailable{Op: "load stream", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var events []eventsrc.StoredEvent
	for _, stored := range s.streams[streamID] {
		if stored.Version >= fromVersion {
			events = append(events, stored)
		}
	}
	return events, nil
}

// ReadAll returns up to limit events with GlobalSequence >= fromGlobalSequence.
func (s *Store) ReadAll(ctx context.Context, fromGlobalSequence int64, limit int) ([]eventsrc.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, eventsrc.ErrStoreUnavailable{Op: "read all", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var events []eventsrc.StoredEvent
	for _, stored := range s.log {
		if stored.GlobalSequence < fromGlobalSequence {
			continue
		}
		events = append(events, stored)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

// Load returns a projection's checkpoint, 0 when none was saved yet.
func (s *Store) Load(ctx context.Context, projectionName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoints[projectionName], nil
}

// Save persists a projection's checkpoint.
func (s *Store) Save(ctx context.Context, projectionName string, globalSequence int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[projectionName] = globalSequence
	return nil
}

// WithTransaction satisfies the transactor contract. There is nothing to roll
// back in memory; the function simply runs, and a returned error prevents the
// caller from advancing.
func (s *Store) WithTransaction(ctx context.Context, fn projection.TransactionalHandler) error {
	return fn(ctx)
}
