package view

import (
	"time"

	"github.com/google/uuid"
)

// CampaignView is the denormalized, queryable projection of campaign state.
// It is owned exclusively by the campaign projection; command-side code never
// mutates it. Version is the last stream version folded into the row and is
// the idempotency guard for redelivered events.
type CampaignView struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Budget    float64    `json:"budget"`
	Status    string     `json:"status"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Version   int        `json:"-"`
	UpdatedAt time.Time  `json:"updated_at"`
}
