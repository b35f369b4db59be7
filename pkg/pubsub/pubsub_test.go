package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelToTopicAndKey(t *testing.T) {
	topic, key, err := channelToTopicAndKey(ApartmentToIndexChannel("APT123"))
	require.NoError(t, err)
	assert.Equal(t, "sync-to-index", topic)
	assert.Equal(t, "APT123", key)

	topic, key, err = channelToTopicAndKey(ProjectToIndexChannel("PRJ456"))
	require.NoError(t, err)
	assert.Equal(t, "sync-to-index", topic)
	assert.Equal(t, "PRJ456", key)
}

func TestChannelToTopicAndKey_Invalid(t *testing.T) {
	for _, ch := range []string{
		"",
		"sync:apartment:APT123",
		"sync:apartment::to_index",
		":apartment:APT123:to_index",
		"sync:apartment:APT123:index",
		"sync:apartment:APT123:to_index:extra",
	} {
		_, _, err := channelToTopicAndKey(ch)
		assert.Error(t, err, ch)
	}
}

func TestPatternToTopic(t *testing.T) {
	topic, err := patternToTopic(PatternToIndex)
	require.NoError(t, err)
	assert.Equal(t, "sync-to-index", topic)

	_, err = patternToTopic("sync:*")
	assert.Error(t, err)
}

func TestSanitizeGroupID(t *testing.T) {
	assert.Equal(t, "apartment-indexer-sync-to-index", sanitizeGroupID("apartment-indexer-sync-to-index"))
	assert.Equal(t, "apartment-indexer-sync-_placeholder_-to-index", sanitizeGroupID("apartment-indexer-sync:_placeholder_:to-index"))
}

func TestConsumerConfig_StoresOffsetsOnHandoff(t *testing.T) {
	cm := consumerConfig("kafka:9092", "apartment-indexer")

	autoStore, err := cm.Get("enable.auto.offset.store", true)
	require.NoError(t, err)
	assert.Equal(t, false, autoStore)

	autoCommit, err := cm.Get("enable.auto.commit", false)
	require.NoError(t, err)
	assert.Equal(t, true, autoCommit)

	group, err := cm.Get("group.id", "")
	require.NoError(t, err)
	assert.Equal(t, "apartment-indexer", group)
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent(EventApartmentUpserted, "a1", map[string]string{"id": "a1"})
	require.NoError(t, err)
	assert.Equal(t, EventApartmentUpserted, e.Type)
	assert.Equal(t, "a1", e.Key)
	assert.False(t, e.Timestamp.IsZero())
	assert.JSONEq(t, `{"id":"a1"}`, string(e.Payload))

	e, err = NewEvent(EventApartmentDeleted, "a1", nil)
	require.NoError(t, err)
	assert.Nil(t, e.Payload)
}

func TestNewPubSub_UnsupportedDriver(t *testing.T) {
	_, err := NewPubSub(Config{Driver: "nats"})
	assert.Error(t, err)
}
