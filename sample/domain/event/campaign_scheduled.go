package event

import (
	"time"

	"github.com/omnicamp/eventcore/eventsrc"
)

const CampaignScheduledEventType = "CampaignScheduled"

// CampaignScheduled is emitted when a campaign gets its run window.
type CampaignScheduled struct {
	eventsrc.BaseEvent
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (e CampaignScheduled) EventType() string { return CampaignScheduledEventType }

func init() {
	eventsrc.RegisterEvent(CampaignScheduled{})
}
