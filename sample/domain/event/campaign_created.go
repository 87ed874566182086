package event

import "github.com/omnicamp/eventcore/eventsrc"

const CampaignCreatedEventType = "CampaignCreated"

// CampaignCreated is emitted when a new campaign is created.
type CampaignCreated struct {
	eventsrc.BaseEvent
	Name   string  `json:"name"`
	Budget float64 `json:"budget"`
}

func (e CampaignCreated) EventType() string { return CampaignCreatedEventType }

func init() {
	eventsrc.RegisterEvent(CampaignCreated{})
}
