package testutil

import "github.com/omnicamp/eventcore/eventsrc"

// AudienceAggregateType tags the test aggregate used across store tests.
const AudienceAggregateType eventsrc.AggregateType = "audiences"

const (
	SegmentCreatedEventType = "SegmentCreated"
	SegmentRenamedEventType = "SegmentRenamed"
)

// SegmentCreated is a test event emitted when an audience segment is created.
type SegmentCreated struct {
	eventsrc.BaseEvent
	Name string `json:"name"`
}

func (e SegmentCreated) EventType() string { return SegmentCreatedEventType }

// SegmentRenamed is a test event emitted when an audience segment is renamed.
type SegmentRenamed struct {
	eventsrc.BaseEvent
	Name string `json:"name"`
}

func (e SegmentRenamed) EventType() string { return SegmentRenamedEventType }

func init() {
	eventsrc.RegisterEvent(SegmentCreated{})
	eventsrc.RegisterEvent(SegmentRenamed{})
}
