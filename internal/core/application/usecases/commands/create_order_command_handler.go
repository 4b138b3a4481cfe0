package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// CreateOrderCommandHandler places orders with the remote service. When the
// remote service is unreachable the order is created locally under a
// provisional id and its create is queued; the retry job swaps the id later.
type CreateOrderCommandHandler struct {
	session *session.Session
	remote  ports.RemoteOrderService
	orders  OrderCreator
	logger  *slog.Logger
	now     func() time.Time
}

// NewCreateOrderCommandHandler creates a handler for order creation.
func NewCreateOrderCommandHandler(
	sess *session.Session,
	remote ports.RemoteOrderService,
	orders OrderCreator,
	logger *slog.Logger,
) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		session: sess,
		remote:  remote,
		orders:  orders,
		logger:  logger.With("component", "create_order_handler"),
		now:     time.Now,
	}
}

// Handle creates the order and returns its id, provisional when the remote
// service could not be reached.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}

	gen := h.session.Generation()
	created, err := h.remote.Create(ctx, cmd.Draft())
	if genErr := h.session.Check(gen); genErr != nil {
		return "", genErr
	}
	h.orders.ObserveRemote(err)

	switch {
	case err == nil:
		if _, err = h.orders.Accept(ctx, created); err != nil && !errors.Is(err, errs.ErrObjectNotFound) {
			return "", err
		}
		return created.ID(), nil
	case errs.IsTransient(err):
		return h.createOffline(ctx, cmd.Draft(), err)
	default:
		return "", err
	}
}

func (h *CreateOrderCommandHandler) createOffline(ctx context.Context, draft order.Draft, cause error) (string, error) {
	now := h.now()
	local, err := order.NewProvisionalOrder(draft, now)
	if err != nil {
		return "", err
	}
	create, err := outbox.NewCreate(local.ID(), draft, now)
	if err != nil {
		return "", err
	}
	if _, err = h.orders.CreateProvisional(ctx, local, create); err != nil {
		return "", err
	}

	h.logger.WarnContext(ctx, "Remote service unreachable, order created offline",
		"order_id", local.ID(), "tracking_number", draft.TrackingNumber(), "error", cause)
	return local.ID(), nil
}
