package eventsrc

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a stream has no events at all. Callers decide
// whether that is an error or an expected "does not exist yet" state.
var ErrNotFound = errors.New("aggregate not found")

// ErrConcurrency is returned when an append fails because the stream's
// current version did not match the expected version, indicating a
// concurrent modification. Recover by reloading and retrying the intent.
type ErrConcurrency struct {
	StreamID        string
	ExpectedVersion int
}

func (e ErrConcurrency) Error() string {
	return fmt.Sprintf("concurrency conflict on stream %s: expected version %d", e.StreamID, e.ExpectedVersion)
}

// ErrStoreUnavailable wraps a transient infrastructure failure (timeout,
// connection loss). A timed-out append may or may not have committed, so
// retrying callers must re-check the stream version first.
type ErrStoreUnavailable struct {
	Op  string
	Err error
}

func (e ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("event store unavailable during %s: %v", e.Op, e.Err)
}

func (e ErrStoreUnavailable) Unwrap() error { return e.Err }

// ErrSerialization is returned when a stored payload cannot be decoded into
// the expected event shape. It is fatal for that event's processing and must
// be isolated per event rather than crash the consuming loop.
type ErrSerialization struct {
	EventType string
	Err       error
}

func (e ErrSerialization) Error() string {
	return fmt.Sprintf("cannot decode event of type %q: %v", e.EventType, e.Err)
}

func (e ErrSerialization) Unwrap() error { return e.Err }
