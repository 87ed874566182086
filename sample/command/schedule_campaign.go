package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/aggregate"
	"github.com/omnicamp/eventcore/sample/domain/event"
	"github.com/omnicamp/eventcore/sample/domain/repository"
)

// ScheduleCampaignCommand assigns a campaign's run window.
type ScheduleCampaignCommand struct {
	ID       uuid.UUID `json:"id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type ScheduleCampaignHandler struct {
	repo *repository.CampaignRepository
}

func NewScheduleCampaignHandler(repo *repository.CampaignRepository) *ScheduleCampaignHandler {
	return &ScheduleCampaignHandler{repo: repo}
}

func (h *ScheduleCampaignHandler) Handle(ctx context.Context, cmd ScheduleCampaignCommand) error {
	c, err := h.repo.Load(ctx, cmd.ID)
	if err != nil {
		return err
	}

	if err := c.TrackChange(ctx, &event.CampaignScheduled{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, cmd.ID),
		StartsAt:  cmd.StartsAt,
		EndsAt:    cmd.EndsAt,
	}); err != nil {
		return fmt.Errorf("track schedule campaign failed: %w", err)
	}

	return h.repo.Save(ctx, c)
}
