package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// UpdateOrderStatusCommandHandler applies a status change optimistically and
// confirms it with the remote service.
//
// Outcomes:
//   - an invalid transition fails before any remote call;
//   - a change behind unconfirmed earlier writes is queued after them;
//   - the remote record confirms the change;
//   - an unreachable remote keeps the change pending and queues it for retry;
//   - a conflict restores the authoritative record and returns *errs.ConflictError;
//   - any other rejection rolls the change back.
type UpdateOrderStatusCommandHandler struct {
	session *session.Session
	remote  ports.RemoteOrderService
	orders  StatusUpdater
	logger  *slog.Logger
	now     func() time.Time
}

// NewUpdateOrderStatusCommandHandler creates a handler for status changes.
func NewUpdateOrderStatusCommandHandler(
	sess *session.Session,
	remote ports.RemoteOrderService,
	orders StatusUpdater,
	logger *slog.Logger,
) UpdateOrderStatusCommandHandler {
	return UpdateOrderStatusCommandHandler{
		session: sess,
		remote:  remote,
		orders:  orders,
		logger:  logger.With("component", "update_order_status_handler"),
		now:     time.Now,
	}
}

// Handle returns the order as the session now sees it. A queued change is
// reported as success with Pending set.
func (h *UpdateOrderStatusCommandHandler) Handle(
	ctx context.Context,
	cmd UpdateOrderStatusCommand,
) (reconcile.Snapshot, error) {
	if err := cmd.Validate(); err != nil {
		return reconcile.Snapshot{}, err
	}

	change, err := h.orders.ApplyLocal(ctx, cmd.OrderID(), cmd.Status(), h.session.Actor().Role)
	if err != nil {
		return reconcile.Snapshot{}, err
	}
	if !change.Changed {
		return change.After, nil
	}

	// Earlier writes for this order are still on their way: the create of a
	// provisional order or a status change made while offline. The update
	// follows them so the remote service sees the edges in order.
	if change.Behind || order.IsProvisionalID(cmd.OrderID()) {
		return h.enqueue(ctx, change, nil)
	}

	gen := h.session.Generation()
	updated, err := h.remote.UpdateStatus(ctx, cmd.OrderID(), cmd.Status())
	if genErr := h.session.Check(gen); genErr != nil {
		return reconcile.Snapshot{}, genErr
	}
	h.orders.ObserveRemote(err)

	var conflict *errs.ConflictError
	switch {
	case err == nil:
		return h.orders.Accept(ctx, updated)
	case errs.IsTransient(err):
		return h.enqueue(ctx, change, err)
	case errors.As(err, &conflict):
		return h.resolveConflict(ctx, change, conflict)
	default:
		if rbErr := h.orders.Rollback(ctx, change); rbErr != nil {
			return reconcile.Snapshot{}, errors.Join(err, rbErr)
		}
		return reconcile.Snapshot{}, err
	}
}

func (h *UpdateOrderStatusCommandHandler) enqueue(
	ctx context.Context,
	change reconcile.Change,
	cause error,
) (reconcile.Snapshot, error) {
	w, err := outbox.NewStatusUpdate(change.After.Order.ID(), change.After.Order.Status(), h.now())
	if err != nil {
		return reconcile.Snapshot{}, err
	}
	if err = h.orders.Enqueue(ctx, w); err != nil {
		return reconcile.Snapshot{}, err
	}

	if cause != nil {
		h.logger.WarnContext(ctx, "Remote service unreachable, status change queued",
			"order_id", w.OrderID(), "status", w.Status().String(), "error", cause)
	}
	return change.After, nil
}

func (h *UpdateOrderStatusCommandHandler) resolveConflict(
	ctx context.Context,
	change reconcile.Change,
	conflict *errs.ConflictError,
) (reconcile.Snapshot, error) {
	if err := h.orders.Rollback(ctx, change); err != nil {
		return reconcile.Snapshot{}, err
	}

	id := change.After.Order.ID()
	gen := h.session.Generation()
	authoritative, err := h.remote.Get(ctx, id)
	if genErr := h.session.Check(gen); genErr != nil {
		return reconcile.Snapshot{}, genErr
	}
	h.orders.ObserveRemote(err)
	if err != nil {
		h.logger.WarnContext(ctx, "Conflict could not be resolved", "order_id", id, "error", err)
		return change.Before, conflict
	}

	snap, err := h.orders.Resolve(ctx, authoritative)
	if err != nil {
		return reconcile.Snapshot{}, errors.Join(conflict, err)
	}
	return snap, errs.NewConflictErrorWithCause(id, authoritative.Status().String(), conflict.Cause)
}
