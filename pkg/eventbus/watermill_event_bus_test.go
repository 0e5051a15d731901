package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressline/pressline/pkg/channels/gochannel"
	"github.com/pressline/pressline/pkg/events"
	"github.com/pressline/pressline/pkg/models"
)

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	received := make(chan any, 1)
	bus.Handle(events.WorkflowCompletedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})

	require.NoError(t, bus.Subscribe(t.Context()))

	event := events.WorkflowCompleted{
		BaseEvent: events.BaseEvent{
			ID:         bus.GenerateID(),
			Type:       events.WorkflowCompletedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: "wf-1",
		},
		Status: models.WorkflowStatusPublished,
	}

	require.NoError(t, bus.Publish(t.Context(), "wf-1", event))

	select {
	case got := <-received:
		completed, ok := got.(*events.WorkflowCompleted)
		require.True(t, ok)
		assert.Equal(t, "wf-1", completed.WorkflowID)
		assert.Equal(t, models.WorkflowStatusPublished, completed.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	require.NoError(t, bus.Subscribe(t.Context()))

	// No handler registered; publish must not error or wedge the stream.
	event := events.WorkflowSubmitted{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), WorkflowID: "wf-1"},
	}
	assert.NoError(t, bus.Publish(t.Context(), "wf-1", event))
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
