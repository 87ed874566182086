package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/omnicamp/eventcore/eventsrc"
)

// Store implements eventsrc.Store on PostgreSQL. The event log is a single
// table with a BIGSERIAL global sequence and a UNIQUE (stream_id, version)
// constraint; the constraint is what turns a lost race between concurrent
// writers into a store-level conflict.
type Store struct {
	db *DB
}

// NewEventStore creates a new PostgreSQL event store.
func NewEventStore(db *DB) *Store {
	return &Store{db: db}
}

const eventStoreSchema = `
CREATE TABLE IF NOT EXISTS event_store (
    global_sequence BIGSERIAL PRIMARY KEY,
    stream_id       TEXT        NOT NULL,
    version         INT         NOT NULL,
    event_id        UUID        NOT NULL,
    event_type      TEXT        NOT NULL,
    payload         JSONB       NOT NULL,
    metadata        JSONB,
    recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (stream_id, version)
);
CREATE INDEX IF NOT EXISTS event_store_event_type_idx ON event_store (event_type);
`

// Initialize creates the event log schema. It is idempotent and safe to call
// on every process start.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, eventStoreSchema); err != nil {
		return mapStoreErr("initialize", err)
	}
	return nil
}

// Append commits the batch atomically. The stream's current version is
// re-checked inside the transaction so an expected version ahead of the
// stream conflicts instead of writing a gap; the unique constraint catches
// the concurrent-writer race the check cannot see.
func (s *Store) Append(
	ctx context.Context,
	streamID string,
	expectedVersion int,
	events []eventsrc.Event,
) (int, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	tx, owned, err := s.begin(ctx)
	if err != nil {
		return 0, mapStoreErr("append", err)
	}
	if owned {
		defer tx.Rollback(ctx)
	}

	// BIGSERIAL values are assigned at insert time, not commit time. The
	// xact-scoped advisory lock serializes appenders until commit, so global
	// sequences become visible in sequence order; without it a reader could
	// see N+1 committed while N is still in flight, advance its checkpoint,
	// and skip N forever.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('event_store'))`); err != nil {
		return 0, mapStoreErr("append", err)
	}

	var current int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM event_store WHERE stream_id = $1`,
		streamID,
	).Scan(&current)
	if err != nil {
		return 0, mapStoreErr("append", err)
	}
	if current != expectedVersion {
		return 0, eventsrc.ErrConcurrency{StreamID: streamID, ExpectedVersion: expectedVersion}
	}

	if err := s.insertBatch(ctx, tx, streamID, expectedVersion, events); err != nil {
		return 0, err
	}

	if owned {
		if err := tx.Commit(ctx); err != nil {
			return 0, mapStoreErr("append", err)
		}
	}
	return expectedVersion + len(events), nil
}

func (s *Store) insertBatch(
	ctx context.Context,
	tx pgx.Tx,
	streamID string,
	expectedVersion int,
	events []eventsrc.Event,
) error {
	b := &pgx.Batch{}
	stmt := `
        INSERT INTO event_store (stream_id, version, event_id, event_type, payload, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	for i, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		metadata, err := json.Marshal(map[string]any{
			"event_id":       evt.EventID(),
			"aggregate_type": evt.AggregateType(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
		b.Queue(stmt, streamID, expectedVersion+i+1, evt.EventID(), evt.EventType(), payload, metadata)
	}

	br := tx.SendBatch(ctx, b)
	defer br.Close()

	for range len(events) {
		if _, err := br.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
				return eventsrc.ErrConcurrency{StreamID: streamID, ExpectedVersion: expectedVersion}
			}
			return mapStoreErr("append", err)
		}
	}
	return br.Close()
}

// LoadStream returns a stream's events with version >= fromVersion, ascending.
func (s *Store) LoadStream(ctx context.Context, streamID string, fromVersion int) ([]eventsrc.StoredEvent, error) {
	query := `
        SELECT stream_id, version, global_sequence, event_type, payload, metadata, recorded_at
        FROM event_store
        WHERE stream_id = $1 AND version >= $2
        ORDER BY version ASC
    `
	rows, err := s.db.Pool.Query(ctx, query, streamID, fromVersion)
	if err != nil {
		return nil, mapStoreErr("load stream", err)
	}
	defer rows.Close()

	return scanStoredEvents(rows, "load stream")
}

// ReadAll returns up to limit events across all streams with global sequence
// >= fromGlobalSequence, ascending. This is the projection feed.
func (s *Store) ReadAll(ctx context.Context, fromGlobalSequence int64, limit int) ([]eventsrc.StoredEvent, error) {
	query := `
        SELECT stream_id, version, global_sequence, event_type, payload, metadata, recorded_at
        FROM event_store
        WHERE global_sequence >= $1
        ORDER BY global_sequence ASC
        LIMIT NULLIF($2, 0)
    `
	rows, err := s.db.Pool.Query(ctx, query, fromGlobalSequence, limit)
	if err != nil {
		return nil, mapStoreErr("read all", err)
	}
	defer rows.Close()

	return scanStoredEvents(rows, "read all")
}

func scanStoredEvents(rows pgx.Rows, op string) ([]eventsrc.StoredEvent, error) {
	var events []eventsrc.StoredEvent
	for rows.Next() {
		var stored eventsrc.StoredEvent
		err := rows.Scan(
			&stored.StreamID,
			&stored.Version,
			&stored.GlobalSequence,
			&stored.EventType,
			&stored.Payload,
			&stored.Metadata,
			&stored.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(op, err)
	}
	return events, nil
}

// begin joins a transaction already injected into the context, or starts its
// own. owned reports whether the caller must commit/rollback.
func (s *Store) begin(ctx context.Context) (pgx.Tx, bool, error) {
	if tx, ok := txFromContext(ctx); ok {
		return tx, false, nil
	}
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	return tx, true, nil
}

// mapStoreErr classifies infrastructure failures as transient so callers can
// retry with backoff. A timed-out append may or may not have committed; the
// retrying caller must re-check the stream version first.
func mapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return eventsrc.ErrStoreUnavailable{Op: op, Err: err}
}
