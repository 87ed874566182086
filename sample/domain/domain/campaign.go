package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a campaign.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusArchived  Status = "archived"
)

// Campaign is the state of a marketing campaign, reconstructed from its
// event stream.
type Campaign struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Budget   float64    `json:"budget"`
	Status   Status     `json:"status"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

func (c Campaign) Validate() error {
	if c.Name == "" {
		return errors.New("campaign name cannot be empty")
	}
	if c.Budget < 0 {
		return fmt.Errorf("campaign budget cannot be negative, but got %f", c.Budget)
	}
	if c.StartsAt != nil && c.EndsAt != nil && !c.EndsAt.After(*c.StartsAt) {
		return errors.New("campaign must end after it starts")
	}
	return nil
}
