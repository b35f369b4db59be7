package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyalawy/nawy/pkg/pubsub"
)

func TestTaskEventRoundTrip(t *testing.T) {
	cases := []struct {
		task    Task
		channel string
	}{
		{SyncApartment("a1"), "sync:apartment:a1:to_index"},
		{RemoveApartment("a1"), "sync:apartment:a1:to_index"},
		{SyncProject("p1"), "sync:project:p1:to_index"},
	}
	for _, tc := range cases {
		t.Run(tc.task.String(), func(t *testing.T) {
			channel, event, err := taskEvent(tc.task)
			require.NoError(t, err)
			assert.Equal(t, tc.channel, channel)
			assert.Equal(t, tc.task.ID, event.Key)

			back, err := eventTask(event)
			require.NoError(t, err)
			assert.Equal(t, tc.task, back)
		})
	}
}

func TestTaskEvent_Unknown(t *testing.T) {
	_, _, err := taskEvent(Task{Kind: "bogus", ID: "x"})
	assert.Error(t, err)

	_, err = eventTask(&pubsub.Event{Type: "bogus", Key: "x"})
	assert.Error(t, err)

	_, err = eventTask(&pubsub.Event{Type: pubsub.EventApartmentDeleted})
	assert.Error(t, err)
}
