package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/aggregate"
	"github.com/omnicamp/eventcore/sample/domain/event"
	"github.com/omnicamp/eventcore/sample/domain/repository"
)

// RenameCampaignCommand changes a campaign's display name.
type RenameCampaignCommand struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// RenameCampaignHandler handles the RenameCampaignCommand. A concurrency
// conflict means another writer got to the stream first; the handler reloads
// the fresh state and re-applies the rename a bounded number of times.
type RenameCampaignHandler struct {
	repo        *repository.CampaignRepository
	maxAttempts int
}

func NewRenameCampaignHandler(repo *repository.CampaignRepository) *RenameCampaignHandler {
	return &RenameCampaignHandler{repo: repo, maxAttempts: 3}
}

func (h *RenameCampaignHandler) Handle(ctx context.Context, cmd RenameCampaignCommand) error {
	var lastErr error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		c, err := h.repo.Load(ctx, cmd.ID)
		if err != nil {
			return err
		}

		if err := c.TrackChange(ctx, &event.CampaignRenamed{
			BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, cmd.ID),
			Name:      cmd.Name,
		}); err != nil {
			return fmt.Errorf("track rename campaign failed: %w", err)
		}

		err = h.repo.Save(ctx, c)
		if err == nil {
			return nil
		}

		var conflict eventsrc.ErrConcurrency
		if !errors.As(err, &conflict) {
			return err
		}
		lastErr = err
		slog.WarnContext(ctx, "Concurrent write detected, reloading and retrying rename",
			"campaignID", cmd.ID, "attempt", attempt)
	}
	return fmt.Errorf("rename campaign %s failed after %d attempts: %w", cmd.ID, h.maxAttempts, lastErr)
}
