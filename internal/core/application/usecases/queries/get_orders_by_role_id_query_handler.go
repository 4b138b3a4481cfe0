package queries

import (
	"context"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/domain/model/kernel"
)

// GetOrdersByRoleIDQueryHandler serves per-owner views from the cache.
type GetOrdersByRoleIDQueryHandler struct {
	reader OrderReader
	scope  kernel.Scope
}

// NewGetOrdersByRoleIDQueryHandler creates a handler that only returns orders
// visible in scope. Asking for another owner's orders yields nothing unless
// they are shared with the session actor.
func NewGetOrdersByRoleIDQueryHandler(reader OrderReader, scope kernel.Scope) GetOrdersByRoleIDQueryHandler {
	return GetOrdersByRoleIDQueryHandler{reader: reader, scope: scope}
}

// Handle returns matching orders sorted by order date.
func (h GetOrdersByRoleIDQueryHandler) Handle(
	_ context.Context,
	query GetOrdersByRoleIDQuery,
) ([]reconcile.Snapshot, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return visible(h.reader.ByRoleID(query.RoleID()), h.scope), nil
}
