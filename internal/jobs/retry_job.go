package jobs

import (
	"context"
	"errors"
	"log/slog"

	"ordersync/internal/core/application/usecases/commands"
	"ordersync/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// DefaultRetrySchedule checks the outbox every ten seconds.
const DefaultRetrySchedule = "*/10 * * * * *"

// Retrier replays queued writes.
type Retrier interface {
	RetryPendingWrites(ctx context.Context, force bool) (commands.RetryResult, error)
}

// RetryJob drains the pending-write outbox. The handler's backoff decides
// whether a tick actually calls the remote service.
type RetryJob struct {
	retrier  Retrier
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewRetryJob creates a retry job. An empty schedule selects DefaultRetrySchedule.
func NewRetryJob(retrier Retrier, schedule string, logger *slog.Logger) *RetryJob {
	if schedule == "" {
		schedule = DefaultRetrySchedule
	}
	logger = logger.With("component", "retry_job")
	return &RetryJob{
		retrier:  retrier,
		schedule: schedule,
		cron:     newCron(logger),
		logger:   logger,
	}
}

func (j *RetryJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run(ctx) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(ctx, "Retry job started", "schedule", j.schedule)
	return nil
}

// Run performs one replay pass.
func (j *RetryJob) Run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := j.retrier.RetryPendingWrites(ctx, false)
	switch {
	case errors.Is(err, errs.ErrSessionEnded):
		return
	case err != nil:
		j.logger.ErrorContext(ctx, "Pending write replay failed", "error", err)
	case res.Delivered > 0 || res.Dropped > 0:
		j.logger.InfoContext(ctx, "Pending writes replayed",
			"delivered", res.Delivered, "dropped", res.Dropped, "remaining", res.Remaining)
	}
}

func (j *RetryJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Retry job stopped")
}
