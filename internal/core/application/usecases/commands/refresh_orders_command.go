package commands

import (
	"errors"

	"ordersync/internal/pkg/guard"
)

var ErrRefreshOrdersCommandIsNotConstructed = errors.New(
	"RefreshOrdersCommand must be created via NewRefreshOrdersCommand constructor",
)

// RefreshOrdersCommand forces a full reload of the orders in scope.
type RefreshOrdersCommand struct {
	guard guard.ConstructorGuard
}

// NewRefreshOrdersCommand creates a refresh command.
func NewRefreshOrdersCommand() RefreshOrdersCommand {
	return RefreshOrdersCommand{guard: guard.NewConstructorGuard()}
}

// Validate ensures the command was created through the constructor.
func (c RefreshOrdersCommand) Validate() error {
	return c.guard.Validate(ErrRefreshOrdersCommandIsNotConstructed)
}
