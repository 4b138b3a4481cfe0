package ports

import (
	"context"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/orderevent"
)

// RealtimeFeed opens role-scoped subscriptions to remote order mutations.
type RealtimeFeed interface {
	// Subscribe attaches to the transport. The returned subscription is live
	// until Close is called, ctx is cancelled or the transport detaches.
	Subscribe(ctx context.Context, scope kernel.Scope) (Subscription, error)
}

// Subscription is a scoped handle on one feed attachment.
//
// Events are delivered in transport order. The channel is closed when the
// subscription ends for any reason; Err then tells why (nil after Close).
// A subscription cannot be restarted: subscribe again instead.
type Subscription interface {
	Events() <-chan orderevent.Event
	Err() error
	Close() error
}
