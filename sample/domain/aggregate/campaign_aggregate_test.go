package aggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/aggregate"
	"github.com/omnicamp/eventcore/sample/domain/domain"
	"github.com/omnicamp/eventcore/sample/domain/event"
)

func created(id uuid.UUID, name string, budget float64) *event.CampaignCreated {
	return &event.CampaignCreated{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, id),
		Name:      name,
		Budget:    budget,
	}
}

func TestCampaignAggregate_CreateFold(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	c := aggregate.NewCampaignAggregateEmpty()
	require.NoError(t, c.TrackChange(ctx, created(id, "Spring", 1000)))

	assert.Equal(t, id, c.ID())
	assert.Equal(t, id, c.Campaign.ID)
	assert.Equal(t, "Spring", c.Campaign.Name)
	assert.Equal(t, 1000.0, c.Campaign.Budget)
	assert.Equal(t, domain.StatusDraft, c.Campaign.Status)
	assert.Equal(t, 0, c.Version())
	assert.Len(t, c.PendingEvents(), 1)
}

func TestCampaignAggregate_FullLifecycleFold(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	starts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ends := starts.AddDate(0, 1, 0)

	c := aggregate.NewCampaignAggregateEmpty()
	require.NoError(t, c.TrackChange(ctx, created(id, "Spring", 1000)))
	require.NoError(t, c.TrackChange(ctx, &event.CampaignRenamed{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, id),
		Name:      "Spring Sale",
	}))
	require.NoError(t, c.TrackChange(ctx, &event.CampaignScheduled{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, id),
		StartsAt:  starts,
		EndsAt:    ends,
	}))
	require.NoError(t, c.TrackChange(ctx, &event.CampaignArchived{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, id),
	}))

	assert.Equal(t, "Spring Sale", c.Campaign.Name)
	assert.Equal(t, domain.StatusArchived, c.Campaign.Status)
	require.NotNil(t, c.Campaign.StartsAt)
	assert.Equal(t, starts, *c.Campaign.StartsAt)
	assert.Len(t, c.PendingEvents(), 4)
}

func TestCampaignAggregate_ValidationRejectsBadState(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	c := aggregate.NewCampaignAggregateEmpty()
	err := c.TrackChange(ctx, created(id, "", 100))
	require.Error(t, err, "empty name is invalid")
	assert.Empty(t, c.PendingEvents())

	err = c.TrackChange(ctx, created(id, "Spring", -5))
	require.Error(t, err, "negative budget is invalid")
	assert.Empty(t, c.PendingEvents())

	require.NoError(t, c.TrackChange(ctx, created(id, "Spring", 100)))
	when := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	err = c.TrackChange(ctx, &event.CampaignScheduled{
		BaseEvent: eventsrc.NewBaseEvent(aggregate.CampaignAggregateType, id),
		StartsAt:  when,
		EndsAt:    when,
	})
	require.Error(t, err, "window must end after it starts")
	assert.Len(t, c.PendingEvents(), 1, "the rejected schedule was not buffered")
}

func TestCampaignAggregate_ToleratesUnknownEvents(t *testing.T) {
	ctx := context.Background()

	c := aggregate.NewCampaignAggregateEmpty()
	err := c.Apply(ctx, &eventsrc.UnknownEvent{Type: "CampaignBoosted"})
	require.NoError(t, err, "events from newer deploys are skipped, not fatal")
}
