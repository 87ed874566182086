package aggregate

import (
	"context"
	"fmt"
	"reflect"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/domain"
	"github.com/omnicamp/eventcore/sample/domain/event"
)

const CampaignAggregateType eventsrc.AggregateType = "campaigns"

// CampaignAggregate is our aggregate root. It embeds the base AggregateRoot
// for event sourcing behavior and holds its own state directly.
type CampaignAggregate struct {
	*eventsrc.AggregateRoot
	Campaign domain.Campaign
}

// NewCampaignAggregateEmpty is a factory for creating a new, empty
// CampaignAggregate. The repository uses it before loading history.
func NewCampaignAggregateEmpty() *CampaignAggregate {
	c := &CampaignAggregate{}
	// Link the base aggregate's apply method and validator to the concrete
	// aggregate's implementations.
	c.AggregateRoot = eventsrc.NewAggregateRoot(CampaignAggregateType, c.Apply, c.Validate)
	return c
}

// Validate checks if the aggregate's current state is consistent.
func (c *CampaignAggregate) Validate() error {
	return c.Campaign.Validate()
}

// Apply changes the state of the aggregate based on an event. The same fold
// runs for freshly recorded events and for events replayed from storage.
func (c *CampaignAggregate) Apply(ctx context.Context, evt eventsrc.Event) error {
	switch e := evt.(type) {
	case *event.CampaignCreated:
		c.onCampaignCreated(e)
	case *event.CampaignRenamed:
		c.Campaign.Name = e.Name
	case *event.CampaignScheduled:
		c.Campaign.Status = domain.StatusScheduled
		c.Campaign.StartsAt = &e.StartsAt
		c.Campaign.EndsAt = &e.EndsAt
	case *event.CampaignArchived:
		c.Campaign.Status = domain.StatusArchived
	case *eventsrc.UnknownEvent:
		// Recorded by a newer deploy; nothing for this process to fold.
		return nil
	default:
		return fmt.Errorf("unknown event type: %s", reflect.TypeOf(evt))
	}
	return nil
}

func (c *CampaignAggregate) onCampaignCreated(evt *event.CampaignCreated) {
	c.SetID(evt.AggregateID())
	c.Campaign.ID = evt.AggregateID()
	c.Campaign.Name = evt.Name
	c.Campaign.Budget = evt.Budget
	c.Campaign.Status = domain.StatusDraft
}
