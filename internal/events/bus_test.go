package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAssignsSequence(t *testing.T) {
	bus := NewBus(10)

	first := bus.Publish(Event{Type: TypeJobCreated, JobID: "a"})
	second := bus.Publish(Event{Type: TypeJobStatus, JobID: "a"})

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, first.Timestamp.IsZero())
}

func TestSinceReturnsOnlyNewer(t *testing.T) {
	bus := NewBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: TypeJobStatus})
	}

	got := bus.Since(3)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].Seq)
	assert.Equal(t, int64(5), got[1].Seq)
	assert.Empty(t, bus.Since(5))
}

func TestBufferIsBounded(t *testing.T) {
	bus := NewBus(3)
	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: TypeJobStatus})
	}

	got := bus.Since(0)
	require.Len(t, got, 3)
	// Sequence keeps counting even after old events fall off.
	assert.Equal(t, int64(8), got[0].Seq)
}

func TestSubscribeReceivesLiveEvents(t *testing.T) {
	bus := NewBus(10)
	ch, cancel := bus.Subscribe()
	defer cancel()

	published := bus.Publish(Event{Type: TypeJobCreated, JobID: "j1"})

	got := <-ch
	assert.Equal(t, published.Seq, got.Seq)
	assert.Equal(t, "j1", got.JobID)

	cancel()
	bus.Publish(Event{Type: TypeJobStatus})
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after cancel")
		}
	default:
	}
}
