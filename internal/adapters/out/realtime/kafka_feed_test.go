package realtime_test

import (
	"testing"

	"ordersync/internal/adapters/out/realtime"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerGroup(t *testing.T) {
	cook := kernel.Scope{Field: kernel.ScopeCook, ID: "cook-1"}

	first := realtime.ConsumerGroup("ordersync", cook, "a1")
	second := realtime.ConsumerGroup("ordersync", cook, "b2")

	assert.Equal(t, "ordersync.cook_id=cook-1.a1", first)
	assert.NotEqual(t, first, second, "sessions never share a group")
	assert.Equal(t, "ordersync.all.a1", realtime.ConsumerGroup("ordersync", kernel.Scope{Field: kernel.ScopeAll}, "a1"))
}

func TestKafkaConfig_Validate(t *testing.T) {
	err := realtime.KafkaConfig{}.Validate()

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	assert.ErrorContains(t, err, "kafka brokers")
	assert.ErrorContains(t, err, "kafka topic")
	assert.ErrorContains(t, err, "kafka consumer group")

	_, err = realtime.NewKafkaFeed(realtime.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", GroupID: "g"}, nil)
	require.NoError(t, err)
}
