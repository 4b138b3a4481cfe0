package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ordersync/internal/adapters/out/persistence"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

// Feed transports selectable with FEED_TRANSPORT.
const (
	FeedKafka    = "kafka"
	FeedPgNotify = "pgnotify"
	FeedNone     = "none"
)

type Config struct {
	HTTPPort string
	LogLevel slog.Level

	StoreDriver string
	StoreDSN    string

	RemoteBaseURL string
	RemoteTimeout time.Duration

	FeedTransport          string
	KafkaBrokers           []string
	KafkaOrderChangesTopic string
	KafkaConsumerGroup     string
	PgNotifyDSN            string
	PgNotifyChannel        string

	ReloadSchedule string
	RetrySchedule  string

	ActorID      string
	ActorRole    kernel.Role
	ActorScopeID string

	OTLPEndpoint string
	ServiceName  string
}

// LoadConfig reads the configuration from the environment. Every invalid or
// missing value is reported at once.
func LoadConfig(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		HTTPPort:               get("HTTP_PORT", "8080"),
		StoreDriver:            get("STORE_DRIVER", persistence.DriverSQLite),
		StoreDSN:               get("STORE_DSN", "file:ordersync.db"),
		RemoteBaseURL:          get("REMOTE_BASE_URL", ""),
		FeedTransport:          get("FEED_TRANSPORT", FeedNone),
		KafkaOrderChangesTopic: get("KAFKA_ORDER_CHANGES_TOPIC", "order.changes"),
		KafkaConsumerGroup:     get("KAFKA_CONSUMER_GROUP", ""),
		PgNotifyDSN:            get("PGNOTIFY_DSN", ""),
		PgNotifyChannel:        get("PGNOTIFY_CHANNEL", "order_changes"),
		ReloadSchedule:         get("RELOAD_SCHEDULE", ""),
		RetrySchedule:          get("RETRY_SCHEDULE", ""),
		ActorID:                get("ACTOR_ID", ""),
		ActorScopeID:           get("ACTOR_SCOPE_ID", ""),
		OTLPEndpoint:           get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:            get("SERVICE_NAME", "ordersync"),
	}
	if brokers := get("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var errList []error
	if cfg.RemoteBaseURL == "" {
		errList = append(errList, errs.NewValueIsRequiredError("REMOTE_BASE_URL"))
	}

	timeout, err := time.ParseDuration(get("REMOTE_TIMEOUT", "10s"))
	if err != nil {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("REMOTE_TIMEOUT", err))
	}
	cfg.RemoteTimeout = timeout

	role, err := kernel.ParseRole(get("ACTOR_ROLE", ""))
	if err != nil {
		errList = append(errList, fmt.Errorf("ACTOR_ROLE: %w", err))
	}
	cfg.ActorRole = role
	if cfg.ActorID == "" {
		errList = append(errList, errs.NewValueIsRequiredError("ACTOR_ID"))
	}

	if err = cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("LOG_LEVEL", err))
	}

	switch cfg.StoreDriver {
	case persistence.DriverPostgres, persistence.DriverSQLite:
	default:
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("STORE_DRIVER",
			fmt.Errorf("%q is not one of %s, %s", cfg.StoreDriver, persistence.DriverPostgres, persistence.DriverSQLite)))
	}

	switch cfg.FeedTransport {
	case FeedKafka, FeedPgNotify, FeedNone:
	default:
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("FEED_TRANSPORT",
			fmt.Errorf("%q is not one of %s, %s, %s", cfg.FeedTransport, FeedKafka, FeedPgNotify, FeedNone)))
	}

	return cfg, errors.Join(errList...)
}
