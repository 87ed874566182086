package event

import "github.com/omnicamp/eventcore/eventsrc"

const CampaignRenamedEventType = "CampaignRenamed"

// CampaignRenamed is emitted when a campaign's display name changes.
type CampaignRenamed struct {
	eventsrc.BaseEvent
	Name string `json:"name"`
}

func (e CampaignRenamed) EventType() string { return CampaignRenamedEventType }

func init() {
	eventsrc.RegisterEvent(CampaignRenamed{})
}
