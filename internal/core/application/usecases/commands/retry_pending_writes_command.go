package commands

import (
	"errors"

	"ordersync/internal/pkg/guard"
)

var ErrRetryPendingWritesCommandIsNotConstructed = errors.New(
	"RetryPendingWritesCommand must be created via NewRetryPendingWritesCommand constructor",
)

// RetryPendingWritesCommand replays the outbox.
type RetryPendingWritesCommand struct {
	force bool

	guard guard.ConstructorGuard
}

// NewRetryPendingWritesCommand creates a replay command. A forced replay
// ignores the backoff left by earlier failures.
func NewRetryPendingWritesCommand(force bool) RetryPendingWritesCommand {
	return RetryPendingWritesCommand{
		force: force,
		guard: guard.NewConstructorGuard(),
	}
}

// Validate ensures the command was created through the constructor.
func (c RetryPendingWritesCommand) Validate() error {
	return c.guard.Validate(ErrRetryPendingWritesCommandIsNotConstructed)
}

// Force reports whether the backoff should be ignored.
func (c RetryPendingWritesCommand) Force() bool {
	return c.force
}
