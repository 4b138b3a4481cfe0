package jobs

import (
	"context"
	"errors"
	"log/slog"

	"ordersync/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// DefaultReloadSchedule runs a reload every five minutes.
const DefaultReloadSchedule = "0 */5 * * * *"

// Refresher reloads the cache from the remote service.
type Refresher interface {
	RefreshOrders(ctx context.Context) error
}

// ReloadJob periodically refreshes the cache, whether or not the feed is attached.
type ReloadJob struct {
	refresher Refresher
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewReloadJob creates a reload job. An empty schedule selects DefaultReloadSchedule.
func NewReloadJob(refresher Refresher, schedule string, logger *slog.Logger) *ReloadJob {
	if schedule == "" {
		schedule = DefaultReloadSchedule
	}
	logger = logger.With("component", "reload_job")
	return &ReloadJob{
		refresher: refresher,
		schedule:  schedule,
		cron:      newCron(logger),
		logger:    logger,
	}
}

// Start schedules Run with ctx. Runs stop once ctx is done.
func (j *ReloadJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(ctx) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(ctx, "Reload job started", "schedule", j.schedule)
	return nil
}

// Run performs one reload.
func (j *ReloadJob) Run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := j.refresher.RefreshOrders(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrSessionEnded), errs.IsTransient(err):
		j.logger.DebugContext(ctx, "Scheduled reload skipped", "error", err)
	default:
		j.logger.ErrorContext(ctx, "Scheduled reload failed", "error", err)
	}
}

// Stop stops scheduling and waits for a running reload to return.
func (j *ReloadJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Reload job stopped")
}

func newCron(logger *slog.Logger) *cron.Cron {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}
