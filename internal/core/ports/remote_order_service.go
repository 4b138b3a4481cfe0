package ports

import (
	"context"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
)

// RemoteOrderService is the authoritative order backend.
//
// Every method may fail with *errs.NetworkError on transport problems,
// timeouts, throttling or server faults; callers treat that as transient.
type RemoteOrderService interface {
	// Create submits a draft and returns the order as stored remotely, with the
	// remote-assigned id. Replaying a draft with the same tracking number returns
	// the already created order.
	Create(ctx context.Context, draft order.Draft) (*order.Order, error)

	// UpdateStatus requests a status change. Besides NetworkError it fails with
	// *errs.ConflictError when the remote state is incompatible and with
	// *errs.ValueIsInvalidError when the request was rejected as invalid.
	UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)

	// List returns every order visible in scope.
	List(ctx context.Context, scope kernel.Scope) ([]*order.Order, error)

	// Get returns one order or *errs.ObjectNotFoundError.
	Get(ctx context.Context, id string) (*order.Order, error)
}
