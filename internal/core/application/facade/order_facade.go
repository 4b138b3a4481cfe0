// Package facade is the single entry point collaborators use to read and
// mutate orders. Every method acts for the actor of one session.
package facade

import (
	"context"
	"log/slog"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/application/session"
	"ordersync/internal/core/application/usecases/commands"
	"ordersync/internal/core/application/usecases/queries"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

// Option configures an OrderFacade.
type Option func(*options)

type options struct {
	retryBackOff backoff.BackOff
}

// WithRetryBackOff sets the policy spacing retry passes after a failed delivery.
func WithRetryBackOff(b backoff.BackOff) Option {
	return func(o *options) { o.retryBackOff = b }
}

// OrderFacade wires the command and query handlers to one engine.
//
// Reads never block on the network. Writes are applied optimistically and
// confirmed, queued or rolled back depending on the remote outcome. After
// Close every method fails with errs.ErrSessionEnded.
type OrderFacade struct {
	session *session.Session
	engine  *reconcile.Engine
	logger  *slog.Logger

	createOrder       commands.CreateOrderCommandHandler
	updateOrderStatus commands.UpdateOrderStatusCommandHandler
	refreshOrders     commands.RefreshOrdersCommandHandler
	retryPending      *commands.RetryPendingWritesCommandHandler

	ordersByStatus   queries.GetOrdersByStatusQueryHandler
	ordersByRoleID   queries.GetOrdersByRoleIDQueryHandler
	connectionHealth queries.GetConnectionHealthQueryHandler
}

func New(
	engine *reconcile.Engine,
	remote ports.RemoteOrderService,
	logger *slog.Logger,
	opts ...Option,
) *OrderFacade {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sess := engine.Session()
	scope := sess.Scope()
	return &OrderFacade{
		session: sess,
		engine:  engine,
		logger:  logger.With("component", "order_facade", "actor", sess.Actor().ID),

		createOrder:       commands.NewCreateOrderCommandHandler(sess, remote, engine, logger),
		updateOrderStatus: commands.NewUpdateOrderStatusCommandHandler(sess, remote, engine, logger),
		refreshOrders:     commands.NewRefreshOrdersCommandHandler(engine, logger),
		retryPending:      commands.NewRetryPendingWritesCommandHandler(sess, remote, engine, o.retryBackOff, logger),

		ordersByStatus:   queries.NewGetOrdersByStatusQueryHandler(engine.Store(), scope),
		ordersByRoleID:   queries.NewGetOrdersByRoleIDQueryHandler(engine.Store(), scope),
		connectionHealth: queries.NewGetConnectionHealthQueryHandler(engine),
	}
}

// Session returns the session the facade acts for.
func (f *OrderFacade) Session() *session.Session {
	return f.session
}

// Start loads the local cache, attaches the feed and runs a first reload.
// An unreachable remote service is not an error: cached orders are served.
func (f *OrderFacade) Start(ctx context.Context) error {
	if err := f.engine.Start(ctx); err != nil {
		return err
	}
	return f.RefreshOrders(ctx)
}

// CreateOrder submits draft and returns the new order id. When the remote
// service is unreachable the id is provisional and the create is queued.
func (f *OrderFacade) CreateOrder(ctx context.Context, draft order.Draft) (string, error) {
	if f.session.Ended() {
		return "", errs.ErrSessionEnded
	}
	cmd, err := commands.NewCreateOrderCommand(draft)
	if err != nil {
		return "", err
	}
	return f.createOrder.Handle(ctx, cmd)
}

// UpdateOrderStatus requests a status change for the session actor.
//
// A change queued for retry is returned with Pending set and a nil error. A
// conflict returns the authoritative order together with the *errs.ConflictError.
func (f *OrderFacade) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*reconcile.Snapshot, error) {
	if f.session.Ended() {
		return nil, errs.ErrSessionEnded
	}
	cmd, err := commands.NewUpdateOrderStatusCommand(id, status)
	if err != nil {
		return nil, err
	}

	snap, err := f.updateOrderStatus.Handle(ctx, cmd)
	if snap.Order == nil {
		return nil, err
	}
	return &snap, err
}

// RefreshOrders forces a reload. Calls made while one is in flight share it.
func (f *OrderFacade) RefreshOrders(ctx context.Context) error {
	if f.session.Ended() {
		return errs.ErrSessionEnded
	}
	return f.refreshOrders.Handle(ctx, commands.NewRefreshOrdersCommand())
}

// RetryPendingWrites replays queued writes. Unless force is set the pass is
// skipped while the previous failure's backoff has not elapsed.
func (f *OrderFacade) RetryPendingWrites(ctx context.Context, force bool) (commands.RetryResult, error) {
	if f.session.Ended() {
		return commands.RetryResult{}, errs.ErrSessionEnded
	}
	return f.retryPending.Handle(ctx, commands.NewRetryPendingWritesCommand(force))
}

// OrdersByStatus returns visible orders with status, oldest first.
func (f *OrderFacade) OrdersByStatus(ctx context.Context, status order.Status) ([]reconcile.Snapshot, error) {
	if f.session.Ended() {
		return nil, errs.ErrSessionEnded
	}
	query, err := queries.NewGetOrdersByStatusQuery(status)
	if err != nil {
		return nil, err
	}
	return f.ordersByStatus.Handle(ctx, query)
}

// OrdersByRoleID returns visible orders whose cook or customer is id.
func (f *OrderFacade) OrdersByRoleID(ctx context.Context, id string) ([]reconcile.Snapshot, error) {
	if f.session.Ended() {
		return nil, errs.ErrSessionEnded
	}
	query, err := queries.NewGetOrdersByRoleIDQuery(id)
	if err != nil {
		return nil, err
	}
	return f.ordersByRoleID.Handle(ctx, query)
}

func (f *OrderFacade) ConnectionHealth(ctx context.Context) (reconcile.Health, error) {
	if f.session.Ended() {
		return reconcile.Health{}, errs.ErrSessionEnded
	}
	return f.connectionHealth.Handle(ctx, queries.NewGetConnectionHealthQuery())
}

// Close ends the session. The feed subscription and scheduled jobs registered
// with the session are released with it.
func (f *OrderFacade) Close() error {
	f.logger.Info("Closing order session")
	return f.session.Close()
}
