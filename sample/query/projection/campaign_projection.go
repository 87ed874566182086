package projection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/domain"
	"github.com/omnicamp/eventcore/sample/domain/event"
	"github.com/omnicamp/eventcore/sample/query/repository"
	"github.com/omnicamp/eventcore/sample/query/view"
)

// Name identifies the campaign projection's checkpoint row.
const Name = "campaign-views"

// CampaignProjection folds campaign events into the campaign_views read
// model. It implements projection.Projection.
type CampaignProjection struct {
	repo *repository.CampaignViewRepository
}

func NewCampaignProjection(repo *repository.CampaignViewRepository) *CampaignProjection {
	return &CampaignProjection{repo: repo}
}

func (p *CampaignProjection) Name() string { return Name }

func (p *CampaignProjection) EventTypes() []string {
	return []string{
		event.CampaignCreatedEventType,
		event.CampaignRenamedEventType,
		event.CampaignScheduledEventType,
		event.CampaignArchivedEventType,
	}
}

// Apply runs inside the manager's transaction, together with the checkpoint
// update. The view repository's version guard makes re-application a no-op.
func (p *CampaignProjection) Apply(ctx context.Context, stored eventsrc.StoredEvent) error {
	domainEvt, err := stored.Decode()
	if err != nil {
		return err
	}

	switch e := domainEvt.(type) {
	case *event.CampaignCreated:
		slog.InfoContext(ctx, "Projecting CampaignView",
			"campaignID", e.AggregateID(), "name", e.Name)
		return p.repo.Upsert(ctx, view.CampaignView{
			ID:      e.AggregateID(),
			Name:    e.Name,
			Budget:  e.Budget,
			Status:  string(domain.StatusDraft),
			Version: stored.Version,
		})
	case *event.CampaignRenamed:
		return p.mutate(ctx, stored, func(v *view.CampaignView) {
			v.Name = e.Name
		})
	case *event.CampaignScheduled:
		return p.mutate(ctx, stored, func(v *view.CampaignView) {
			v.Status = string(domain.StatusScheduled)
			v.StartsAt = &e.StartsAt
			v.EndsAt = &e.EndsAt
		})
	case *event.CampaignArchived:
		return p.mutate(ctx, stored, func(v *view.CampaignView) {
			v.Status = string(domain.StatusArchived)
		})
	default:
		// Filtered out by EventTypes; nothing to do.
		return nil
	}
}

// mutate loads the current row, applies the change, and writes it back under
// the stored event's stream version.
func (p *CampaignProjection) mutate(
	ctx context.Context,
	stored eventsrc.StoredEvent,
	change func(*view.CampaignView),
) error {
	id, err := uuid.Parse(stored.StreamID)
	if err != nil {
		return fmt.Errorf("stream %s is not a campaign ID: %w", stored.StreamID, err)
	}
	v, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("campaign view for stream %s missing at version %d", stored.StreamID, stored.Version)
	}
	if v.Version >= stored.Version {
		// Already folded in; redelivery after a crash before the checkpoint write.
		return nil
	}

	change(v)
	v.Version = stored.Version
	return p.repo.Upsert(ctx, *v)
}

// Reset clears the read model ahead of a rebuild from sequence zero.
func (p *CampaignProjection) Reset(ctx context.Context) error {
	return p.repo.Clear(ctx)
}
