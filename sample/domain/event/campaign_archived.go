package event

import "github.com/omnicamp/eventcore/eventsrc"

const CampaignArchivedEventType = "CampaignArchived"

// CampaignArchived is emitted when a campaign is retired.
type CampaignArchived struct {
	eventsrc.BaseEvent
}

func (e CampaignArchived) EventType() string { return CampaignArchivedEventType }

func init() {
	eventsrc.RegisterEvent(CampaignArchived{})
}
