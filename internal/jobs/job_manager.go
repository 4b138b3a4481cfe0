package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// Schedules overrides the default job schedules. Empty fields keep the default.
type Schedules struct {
	Reload string
	Retry  string
}

// OrderSyncer is what the jobs drive; the order facade implements it.
type OrderSyncer interface {
	Refresher
	Retrier
}

// JobManager coordinates all scheduled jobs of a session.
// Provides a unified interface to start and stop them.
type JobManager struct {
	reloadJob *ReloadJob
	retryJob  *RetryJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(syncer OrderSyncer, schedules Schedules, logger *slog.Logger) *JobManager {
	return &JobManager{
		reloadJob: NewReloadJob(syncer, schedules.Reload, logger),
		retryJob:  NewRetryJob(syncer, schedules.Retry, logger),
	}
}

// StartAll starts all scheduled jobs with ctx.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll(ctx context.Context) error {
	if err := jm.reloadJob.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reload job: %w", err)
	}

	if err := jm.retryJob.Start(ctx); err != nil {
		// Stop already started jobs if this one fails
		jm.reloadJob.Stop()
		return fmt.Errorf("failed to start retry job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs and waits for running ones. It can be
// passed to session.Defer.
func (jm *JobManager) StopAll() error {
	jm.retryJob.Stop()
	jm.reloadJob.Stop()
	return nil
}
