package cmd

import (
	"testing"
	"time"

	"ordersync/internal/adapters/out/persistence"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(env(map[string]string{
		"REMOTE_BASE_URL": "http://orders.local",
		"ACTOR_ID":        "cook-1",
		"ACTOR_ROLE":      "cook",
	}))

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, persistence.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, FeedNone, cfg.FeedTransport)
	assert.Equal(t, kernel.RoleCook, cfg.ActorRole)
	assert.Equal(t, "ordersync", cfg.ServiceName)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfig_Kafka(t *testing.T) {
	cfg, err := LoadConfig(env(map[string]string{
		"REMOTE_BASE_URL":      "http://orders.local",
		"REMOTE_TIMEOUT":       "3s",
		"ACTOR_ID":             "driver-1",
		"ACTOR_ROLE":           "delivery",
		"ACTOR_SCOPE_ID":       "cook-1",
		"FEED_TRANSPORT":       "kafka",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"KAFKA_CONSUMER_GROUP": "driver-1",
		"LOG_LEVEL":            "debug",
	}))

	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order.changes", cfg.KafkaOrderChangesTopic)
	assert.Equal(t, "cook-1", cfg.ActorScopeID)
	assert.Equal(t, "DEBUG", cfg.LogLevel.String())
}

func TestLoadConfig_ReportsEveryProblem(t *testing.T) {
	_, err := LoadConfig(env(map[string]string{
		"REMOTE_TIMEOUT": "soon",
		"ACTOR_ROLE":     "waiter",
		"STORE_DRIVER":   "mysql",
		"FEED_TRANSPORT": "mqtt",
	}))

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	for _, key := range []string{"REMOTE_BASE_URL", "REMOTE_TIMEOUT", "ACTOR_ROLE", "ACTOR_ID", "STORE_DRIVER", "FEED_TRANSPORT"} {
		assert.Contains(t, err.Error(), key)
	}
}
