// Package ports defines the contracts between the synchronization core and
// its infrastructure: durable storage, the remote order service and the
// realtime feed. Adapters under internal/adapters implement them.
package ports

import (
	"context"

	"ordersync/internal/core/domain/model/order"
)

// StoredOrder is an order as kept in the local cache, with its sync flags.
type StoredOrder struct {
	Order *order.Order

	// Pending marks an optimistic local change not yet confirmed remotely.
	Pending bool

	// Tombstoned hides the order from every view. The record itself is kept.
	Tombstoned bool
}

// OrderRepository defines the durable side of the local order cache.
// Records are never deleted; a removed order is saved with Tombstoned set.
type OrderRepository interface {
	// Save inserts or replaces the record keyed by its order id.
	Save(ctx context.Context, record StoredOrder) error

	// Get returns the record for id or an *errs.ObjectNotFoundError.
	Get(ctx context.Context, id string) (StoredOrder, error)

	// GetAll returns every record, tombstones included, ordered by order date.
	// Rows that can no longer be decoded are skipped and counted in skipped.
	GetAll(ctx context.Context) (records []StoredOrder, skipped int, err error)
}
