package queries

import (
	"errors"

	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/guard"
)

var ErrGetOrdersByStatusQueryIsNotConstructed = errors.New(
	"GetOrdersByStatusQuery must be created via NewGetOrdersByStatusQuery constructor",
)

// GetOrdersByStatusQuery lists cached orders in one status.
//
// Example:
//
//	query, err := NewGetOrdersByStatusQuery(order.Ready)
//	orders, err := handler.Handle(ctx, query)
//	for _, o := range orders {
//	    fmt.Printf("%s waiting for pickup\n", o.Order.TrackingNumber())
//	}
type GetOrdersByStatusQuery struct {
	status order.Status

	guard guard.ConstructorGuard
}

// NewGetOrdersByStatusQuery creates a query for status.
func NewGetOrdersByStatusQuery(status order.Status) (GetOrdersByStatusQuery, error) {
	if err := status.Validate(); err != nil {
		return GetOrdersByStatusQuery{}, err
	}
	return GetOrdersByStatusQuery{status: status, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrdersByStatusQuery) Validate() error {
	return q.guard.Validate(ErrGetOrdersByStatusQueryIsNotConstructed)
}

// Status returns the status to filter on.
func (q GetOrdersByStatusQuery) Status() order.Status {
	return q.status
}
