package commands

import (
	"context"
	"log/slog"

	"ordersync/internal/pkg/errs"
)

// RefreshOrdersCommandHandler reloads the cache. Concurrent refreshes share
// one remote call inside the engine.
type RefreshOrdersCommandHandler struct {
	reloader Reloader
	logger   *slog.Logger
}

// NewRefreshOrdersCommandHandler creates a refresh handler.
func NewRefreshOrdersCommandHandler(reloader Reloader, logger *slog.Logger) RefreshOrdersCommandHandler {
	return RefreshOrdersCommandHandler{
		reloader: reloader,
		logger:   logger.With("component", "refresh_orders_handler"),
	}
}

// Handle reloads the cache. An unreachable remote is not an error: the
// cache keeps serving and ConnectionHealth reports the outage.
func (h *RefreshOrdersCommandHandler) Handle(ctx context.Context, cmd RefreshOrdersCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	err := h.reloader.Reload(ctx)
	if errs.IsTransient(err) {
		h.logger.WarnContext(ctx, "Refresh failed, serving cached orders", "error", err)
		return nil
	}
	return err
}
