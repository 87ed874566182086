package repository

import (
	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/sample/domain/aggregate"
)

// CampaignRepository loads and saves campaign aggregates through the event store.
type CampaignRepository struct {
	*eventsrc.Repository[*aggregate.CampaignAggregate]
}

// NewCampaignRepository creates a new campaign repository. It internally
// creates a generic eventsrc.Repository configured for the campaign aggregate.
func NewCampaignRepository(store eventsrc.Store) *CampaignRepository {
	return &CampaignRepository{
		Repository: eventsrc.NewRepository(store, aggregate.NewCampaignAggregateEmpty),
	}
}
