package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicamp/eventcore/eventsrc"
	"github.com/omnicamp/eventcore/infra/memory"
	"github.com/omnicamp/eventcore/testutil"
)

func segmentCreated(id uuid.UUID, name string) eventsrc.Event {
	return &testutil.SegmentCreated{
		BaseEvent: eventsrc.NewBaseEvent(testutil.AudienceAggregateType, id),
		Name:      name,
	}
}

func segmentRenamed(id uuid.UUID, name string) eventsrc.Event {
	return &testutil.SegmentRenamed{
		BaseEvent: eventsrc.NewBaseEvent(testutil.AudienceAggregateType, id),
		Name:      name,
	}
}

func TestAppendAndLoadStream_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := uuid.New()
	stream := id.String()

	newVersion, err := store.Append(ctx, stream, 0, []eventsrc.Event{
		segmentCreated(id, "a"),
		segmentRenamed(id, "b"),
		segmentRenamed(id, "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, newVersion)

	events, err := store.LoadStream(ctx, stream, 1)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, evt := range events {
		assert.Equal(t, i+1, evt.Version, "versions are gapless from 1")
		assert.Equal(t, stream, evt.StreamID)
	}
	assert.Equal(t, testutil.SegmentCreatedEventType, events[0].EventType)
	assert.Equal(t, testutil.SegmentRenamedEventType, events[1].EventType)

	tail, err := store.LoadStream(ctx, stream, 3)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, 3, tail[0].Version)
}

func TestLoadStream_EmptyStreamIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	events, err := store.LoadStream(ctx, "nothing-here", 1)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppend_VersionMismatchConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := uuid.New()
	stream := id.String()

	_, err := store.Append(ctx, stream, 0, []eventsrc.Event{segmentCreated(id, "a")})
	require.NoError(t, err)

	// Stream exists: a second expectedVersion=0 writer must lose.
	_, err = store.Append(ctx, stream, 0, []eventsrc.Event{segmentCreated(id, "b")})
	var conflict eventsrc.ErrConcurrency
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, stream, conflict.StreamID)

	// Expected version ahead of the stream conflicts too; no gap is written.
	_, err = store.Append(ctx, stream, 5, []eventsrc.Event{segmentRenamed(id, "c")})
	require.True(t, errors.As(err, &conflict))

	events, err := store.LoadStream(ctx, stream, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1, "loser's events were not committed")
}

func TestReadAll_GlobalOrderAcrossStreams(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	idA, idB := uuid.New(), uuid.New()
	streamA, streamB := idA.String(), idB.String()

	// Interleaved appends to two streams.
	_, err := store.Append(ctx, streamA, 0, []eventsrc.Event{segmentCreated(idA, "a1")})
	require.NoError(t, err)
	_, err = store.Append(ctx, streamB, 0, []eventsrc.Event{segmentCreated(idB, "b1")})
	require.NoError(t, err)
	_, err = store.Append(ctx, streamA, 1, []eventsrc.Event{segmentRenamed(idA, "a2"), segmentRenamed(idA, "a3")})
	require.NoError(t, err)
	_, err = store.Append(ctx, streamB, 1, []eventsrc.Event{segmentRenamed(idB, "b2")})
	require.NoError(t, err)

	all, err := store.ReadAll(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)

	var last int64
	perStream := map[string]int{}
	for _, evt := range all {
		assert.Greater(t, evt.GlobalSequence, last, "global sequence is strictly increasing")
		last = evt.GlobalSequence
		assert.Equal(t, perStream[evt.StreamID]+1, evt.Version,
			"per-stream sub-sequence matches the stream's own version order")
		perStream[evt.StreamID] = evt.Version
	}
	assert.Equal(t, 3, perStream[streamA])
	assert.Equal(t, 2, perStream[streamB])
}

func TestReadAll_ResumeAndLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := uuid.New()

	_, err := store.Append(ctx, id.String(), 0, []eventsrc.Event{
		segmentCreated(id, "a"),
		segmentRenamed(id, "b"),
		segmentRenamed(id, "c"),
		segmentRenamed(id, "d"),
	})
	require.NoError(t, err)

	firstTwo, err := store.ReadAll(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, firstTwo, 2)

	rest, err := store.ReadAll(ctx, firstTwo[1].GlobalSequence+1, 100)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Greater(t, rest[0].GlobalSequence, firstTwo[1].GlobalSequence)
}

func TestCheckpoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	seq, err := store.Load(ctx, "campaign-views")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq, "missing checkpoint defaults to 0")

	require.NoError(t, store.Save(ctx, "campaign-views", 42))
	seq, err = store.Load(ctx, "campaign-views")
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	// Checkpoints are independent per projection.
	other, err := store.Load(ctx, "nats-publisher")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other)
}
