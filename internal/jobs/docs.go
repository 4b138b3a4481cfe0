// Package jobs provides the scheduled background tasks of one order session.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. ReloadJob - Periodically reloads every order in scope, covering feed gaps
// 2. RetryJob - Replays queued writes, honouring the backoff of the last failure
//
// # Usage
//
// Jobs are managed through JobManager and stopped together with the session:
//
//	jobManager := jobs.NewJobManager(orderFacade, jobs.Schedules{}, logger)
//	if err := jobManager.StartAll(sess.Context()); err != nil {
//		return err
//	}
//	_ = sess.Defer(jobManager.StopAll)
//
// # Scheduling
//
// Schedules use the six-field cron syntax with seconds, or descriptors such as
// "@every 30s". A run that is still going when the next one is due is skipped.
//
// # Error Handling
//
// An unreachable remote service is expected and logged at debug level. Any
// other failure is logged as an error; the schedule keeps running.
package jobs
