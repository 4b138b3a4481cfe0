package queries

import (
	"context"
	"slices"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/domain/model/kernel"
)

// GetOrdersByStatusQueryHandler serves status views from the cache.
type GetOrdersByStatusQueryHandler struct {
	reader OrderReader
	scope  kernel.Scope
}

// NewGetOrdersByStatusQueryHandler creates a handler that only returns orders
// visible in scope.
func NewGetOrdersByStatusQueryHandler(reader OrderReader, scope kernel.Scope) GetOrdersByStatusQueryHandler {
	return GetOrdersByStatusQueryHandler{reader: reader, scope: scope}
}

// Handle returns matching orders sorted by order date.
func (h GetOrdersByStatusQueryHandler) Handle(
	_ context.Context,
	query GetOrdersByStatusQuery,
) ([]reconcile.Snapshot, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return visible(h.reader.ByStatus(query.Status()), h.scope), nil
}

func visible(snaps []reconcile.Snapshot, scope kernel.Scope) []reconcile.Snapshot {
	return slices.DeleteFunc(snaps, func(s reconcile.Snapshot) bool {
		return !s.Order.IsVisibleIn(scope)
	})
}
