package eventsrc

import (
	"fmt"
	"sync"
)

// EventFactory is a function that creates a new instance of an event.
type EventFactory func() Event

var (
	eventRegistry = make(map[string]EventFactory)
	mu            sync.RWMutex
)

// RegisterEvent associates an event type name with a factory function.
// It should be called during application initialization (e.g., in an init()
// function). It panics if an event type is registered more than once.
//
// The factory returns a pointer to a zero value of the concrete type so the
// stored payload can be unmarshaled into it.
func RegisterEvent[T Event](proto T) {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := eventRegistry[proto.EventType()]; ok {
		panic(fmt.Sprintf("event type '%s' is already registered", proto.EventType()))
	}
	eventRegistry[proto.EventType()] = func() Event {
		return any(new(T)).(Event)
	}
}

// CreateEvent instantiates an event given its type name. Unregistered types
// yield an *UnknownEvent carrying the type name, never an error, so that
// readers stay forward compatible during rolling deploys.
func CreateEvent(eventType string) Event {
	mu.RLock()
	defer mu.RUnlock()

	factory, ok := eventRegistry[eventType]
	if !ok {
		return &UnknownEvent{Type: eventType}
	}
	return factory()
}
