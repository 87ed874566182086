package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CheckpointStore persists one row per projection holding the last processed
// global sequence. Save takes part in a surrounding transaction when one is
// present in the context, which is how a read-model write and its checkpoint
// commit as a single unit.
type CheckpointStore struct {
	db *DB
}

func NewCheckpointStore(db *DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS projection_checkpoints (
    projection_name                TEXT PRIMARY KEY,
    last_processed_global_sequence BIGINT NOT NULL,
    updated_at                     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Initialize creates the checkpoint schema. Idempotent.
func (s *CheckpointStore) Initialize(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, checkpointSchema); err != nil {
		return fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}
	return nil
}

// Load returns the projection's checkpoint, 0 when none exists yet.
func (s *CheckpointStore) Load(ctx context.Context, projectionName string) (int64, error) {
	var seq int64
	query := `SELECT last_processed_global_sequence FROM projection_checkpoints WHERE projection_name = $1`
	err := s.db.Pool.QueryRow(ctx, query, projectionName).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil // Never ran before; start from the beginning.
		}
		return 0, fmt.Errorf("failed to load checkpoint for %s: %w", projectionName, err)
	}
	return seq, nil
}

// Save upserts the projection's checkpoint, joining the context transaction
// when one is present.
func (s *CheckpointStore) Save(ctx context.Context, projectionName string, globalSequence int64) error {
	query := `
        INSERT INTO projection_checkpoints (projection_name, last_processed_global_sequence, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (projection_name) DO UPDATE SET
            last_processed_global_sequence = EXCLUDED.last_processed_global_sequence,
            updated_at = EXCLUDED.updated_at
    `
	var err error
	if tx, ok := txFromContext(ctx); ok {
		_, err = tx.Exec(ctx, query, projectionName, globalSequence)
	} else {
		_, err = s.db.Pool.Exec(ctx, query, projectionName, globalSequence)
	}
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", projectionName, err)
	}
	return nil
}
