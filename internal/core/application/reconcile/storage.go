package reconcile

import (
	"context"
	"log/slog"

	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// storage runs the durable side of the cache and the outbox. Each write is
// one unit of work; callers keep their in-memory state when it fails.
type storage struct {
	uowFactory ports.UnitOfWorkFactory
	logger     *slog.Logger
}

func (s storage) write(ctx context.Context, op string, fn func(uow ports.UnitOfWork) error) (err error) {
	defer func() {
		if err != nil {
			s.logger.ErrorContext(ctx, "Storage write failed, continuing in memory", "op", op, "error", err)
		}
	}()

	uow := s.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return errs.NewStorageErrorWithCause(op, err)
	}
	if err = fn(uow); err != nil {
		_ = uow.Rollback(ctx)
		return errs.NewStorageErrorWithCause(op, err)
	}
	if err = uow.Commit(ctx); err != nil {
		return errs.NewStorageErrorWithCause(op, err)
	}
	return nil
}
