// Package commands contains the operations that change order state.
// Handlers call the remote order service and hand every cache or outbox
// mutation to the reconciliation engine, which applies it on its own loop.
package commands

import (
	"context"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/outbox"
)

// Engine views used by command handlers. *reconcile.Engine implements all of them.
type (
	// RemoteObserver records whether the remote service answered.
	RemoteObserver interface {
		ObserveRemote(err error)
	}

	// OrderAcceptor reconciles records returned by the remote service.
	OrderAcceptor interface {
		Accept(ctx context.Context, o *order.Order) (reconcile.Snapshot, error)
		Resolve(ctx context.Context, authoritative *order.Order) (reconcile.Snapshot, error)
	}

	// OrderCreator stores created or provisional orders.
	OrderCreator interface {
		RemoteObserver
		OrderAcceptor
		CreateProvisional(ctx context.Context, o *order.Order, create *outbox.Write) (reconcile.Snapshot, error)
	}

	// StatusUpdater applies optimistic status changes.
	StatusUpdater interface {
		RemoteObserver
		OrderAcceptor
		ApplyLocal(ctx context.Context, id string, status order.Status, role kernel.Role) (reconcile.Change, error)
		Rollback(ctx context.Context, change reconcile.Change) error
		Enqueue(ctx context.Context, w *outbox.Write) error
	}

	// Reloader refreshes the cache from the remote service.
	Reloader interface {
		Reload(ctx context.Context) error
	}

	// Outbox replays queued writes.
	Outbox interface {
		RemoteObserver
		OrderAcceptor
		Get(id string) (reconcile.Snapshot, bool)
		PendingWrites() []*outbox.Write
		CompleteCreate(ctx context.Context, create *outbox.Write, created *order.Order) (reconcile.Snapshot, error)
		CompleteWrite(ctx context.Context, w *outbox.Write) error
		AbandonWrite(ctx context.Context, w *outbox.Write, cause error) error
		RecordWriteFailure(ctx context.Context, w *outbox.Write, cause error) error
	}
)
