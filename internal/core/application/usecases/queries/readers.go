// Package queries contains read-only operations over the local order cache.
// Queries never touch the network and never wait for it.
package queries

import (
	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/domain/model/order"
)

type (
	// OrderReader exposes the cached views. *reconcile.Store implements it.
	OrderReader interface {
		ByStatus(status order.Status) []reconcile.Snapshot
		ByRoleID(id string) []reconcile.Snapshot
	}

	// HealthReporter exposes connection state. *reconcile.Engine implements it.
	HealthReporter interface {
		Health() reconcile.Health
	}
)
