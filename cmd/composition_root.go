package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	httpin "ordersync/internal/adapters/in/http"
	"ordersync/internal/adapters/out/persistence"
	"ordersync/internal/adapters/out/realtime"
	"ordersync/internal/adapters/out/remote"
	"ordersync/internal/core/application/facade"
	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/ports"
	"ordersync/internal/jobs"
	"ordersync/internal/telemetry"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

// CompositionRoot holds the process-wide adapters. Sessions opened from it
// share storage, the remote client and the feed transport.
type CompositionRoot struct {
	cfg        Config
	logger     *slog.Logger
	uowFactory *persistence.GormUnitOfWorkFactory
	remote     *remote.Client
	feed       ports.RealtimeFeed
	metrics    *telemetry.SyncMetrics
}

func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	metrics, err := telemetry.NewSyncMetrics(otel.GetMeterProvider().Meter("ordersync"))
	if err != nil {
		return nil, err
	}

	feed, err := newFeed(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &CompositionRoot{
		cfg:        cfg,
		logger:     logger,
		uowFactory: persistence.NewGormUnitOfWorkFactory(gormDB),
		remote:     remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout),
		feed:       feed,
		metrics:    metrics,
	}, nil
}

func newFeed(cfg Config, logger *slog.Logger) (ports.RealtimeFeed, error) {
	switch cfg.FeedTransport {
	case FeedKafka:
		return realtime.NewKafkaFeed(realtime.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaOrderChangesTopic,
			GroupID: cfg.KafkaConsumerGroup,
		}, logger)
	case FeedPgNotify:
		return realtime.NewPgNotifyFeed(cfg.PgNotifyDSN, cfg.PgNotifyChannel, logger)
	default:
		return nil, nil
	}
}

// OpenSession signs actor in: the cache is loaded, the feed attached, a first
// reload run and the scheduled jobs started. Closing the returned facade
// releases all of it.
func (c *CompositionRoot) OpenSession(ctx context.Context, actor kernel.Actor) (*facade.OrderFacade, error) {
	sess, err := session.New(ctx, actor)
	if err != nil {
		return nil, err
	}

	store := reconcile.NewStore(c.uowFactory, c.logger)
	engine := reconcile.NewEngine(sess, store, c.remote, c.feed, c.logger, reconcile.WithMetrics(c.metrics))
	orders := facade.New(engine, c.remote, c.logger)

	if err = orders.Start(ctx); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("failed to start order session: %w", err)
	}

	jobManager := jobs.NewJobManager(orders, jobs.Schedules{
		Reload: c.cfg.ReloadSchedule,
		Retry:  c.cfg.RetrySchedule,
	}, c.logger)
	if err = jobManager.StartAll(sess.Context()); err != nil {
		_ = sess.Close()
		return nil, err
	}
	if err = sess.Defer(jobManager.StopAll); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Order session opened", "actor", actor.ID, "role", actor.Role.String())
	return orders, nil
}

// NewHTTPServer builds the echo router over orders.
func (c *CompositionRoot) NewHTTPServer(ctx context.Context, orders *facade.OrderFacade, metrics http.Handler) (*echo.Echo, error) {
	return httpin.NewRouter(ctx, httpin.NewServer(orders, c.logger), metrics, c.logger)
}
