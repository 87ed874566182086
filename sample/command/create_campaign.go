package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/aggregate"
	"github.com/omnicamp/eventcore/sample/domain/event"
	"github.com/omnicamp/eventcore/sample/domain/repository"
)

// CreateCampaignCommand is the command for creating a new campaign.
type CreateCampaignCommand struct {
	ID     uuid.UUID
	Name   string
	Budget float64
}

// CreateCampaignHandler handles the CreateCampaignCommand.
type CreateCampaignHandler struct {
	repo *repository.CampaignRepository
}

func NewCreateCampaignHandler(repo *repository.CampaignRepository) *CreateCampaignHandler {
	return &CreateCampaignHandler{repo: repo}
}

// Handle creates the aggregate and saves it with expected version 0: the
// stream must not yet exist, so two concurrent creations of the same ID
// resolve to exactly one winner.
func (h *CreateCampaignHandler) Handle(ctx context.Context, cmd CreateCampaignCommand) error {
	slog.InfoContext(ctx, "Handling CreateCampaignCommand", "name", cmd.Name)

	c := aggregate.NewCampaignAggregateEmpty()
	err := c.TrackChange(ctx, &event.CampaignCreated{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, cmd.ID),
		Name:      cmd.Name,
		Budget:    cmd.Budget,
	})
	if err != nil {
		return fmt.Errorf("track create campaign failed: %w", err)
	}

	if err := h.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to save new campaign: %w", err)
	}

	slog.InfoContext(ctx, "Campaign created", "campaignID", c.ID())
	return nil
}
