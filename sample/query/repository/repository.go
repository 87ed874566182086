package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/omnicamp/eventcore/infra/postgres"
	"github.com/omnicamp/eventcore/sample/query/view"
)

// CampaignViewRepository persists the campaign read model. Writes go through
// the transaction-aware DB helpers so they commit together with the
// projection checkpoint.
type CampaignViewRepository struct {
	db *postgres.DB
}

func NewCampaignViewRepository(db *postgres.DB) *CampaignViewRepository {
	return &CampaignViewRepository{db: db}
}

const campaignViewSchema = `
CREATE TABLE IF NOT EXISTS campaign_views (
    id         UUID PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    budget     NUMERIC(14,2) NOT NULL,
    status     VARCHAR(32) NOT NULL,
    starts_at  TIMESTAMPTZ,
    ends_at    TIMESTAMPTZ,
    version    INT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

// Initialize creates the read-model schema. Idempotent.
func (r *CampaignViewRepository) Initialize(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, campaignViewSchema); err != nil {
		return fmt.Errorf("failed to initialize campaign view schema: %w", err)
	}
	return nil
}

// Upsert writes the view, guarded by version: rows only move forward, so
// re-applying an already-applied event (at-least-once redelivery after a
// crash) leaves the read model unchanged.
func (r *CampaignViewRepository) Upsert(ctx context.Context, v view.CampaignView) error {
	query := `
        INSERT INTO campaign_views (id, name, budget, status, starts_at, ends_at, version, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, now())
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            budget = EXCLUDED.budget,
            status = EXCLUDED.status,
            starts_at = EXCLUDED.starts_at,
            ends_at = EXCLUDED.ends_at,
            version = EXCLUDED.version,
            updated_at = EXCLUDED.updated_at
        WHERE campaign_views.version < EXCLUDED.version
    `
	_, err := r.db.Exec(ctx, query, v.ID, v.Name, v.Budget, v.Status, v.StartsAt, v.EndsAt, v.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign view: %w", err)
	}
	return nil
}

// GetByID retrieves the campaign view by its ID.
func (r *CampaignViewRepository) GetByID(ctx context.Context, id uuid.UUID) (*view.CampaignView, error) {
	query := `
        SELECT id, name, budget, status, starts_at, ends_at, version, updated_at
        FROM campaign_views
        WHERE id = $1
    `
	var v view.CampaignView
	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.Name,
		&v.Budget,
		&v.Status,
		&v.StartsAt,
		&v.EndsAt,
		&v.Version,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // View does not exist yet.
		}
		return nil, fmt.Errorf("failed to get campaign view by ID: %w", err)
	}
	return &v, nil
}

// Clear truncates the read model ahead of a projection rebuild.
func (r *CampaignViewRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM campaign_views`); err != nil {
		return fmt.Errorf("failed to clear campaign views: %w", err)
	}
	return nil
}
