package http

import (
	"time"

	"ordersync/internal/adapters/out/orderdto"
	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/application/usecases/commands"
)

// Order is a cached order as returned by the API.
type Order struct {
	orderdto.OrderDTO
	Pending bool `json:"pending"`
}

type CreatedOrder struct {
	ID          string `json:"id"`
	Provisional bool   `json:"provisional"`
}

type StatusChange struct {
	Status string `json:"status"`
}

type RetryResult struct {
	Delivered int  `json:"delivered"`
	Dropped   int  `json:"dropped"`
	Remaining int  `json:"remaining"`
	Skipped   bool `json:"skipped"`
}

type Health struct {
	Connected       bool       `json:"connected"`
	RealTimeEnabled bool       `json:"real_time_enabled"`
	RemoteReachable bool       `json:"remote_reachable"`
	LastReloadAt    *time.Time `json:"last_reload_at,omitempty"`
	PendingWrites   int        `json:"pending_writes"`
}

type Error struct {
	Code          int    `json:"code"`
	Message       string `json:"message"`
	CurrentStatus string `json:"current_status,omitempty"`
	Order         *Order `json:"order,omitempty"`
}

func toOrder(s reconcile.Snapshot) Order {
	return Order{OrderDTO: orderdto.FromDomain(s.Order), Pending: s.Pending}
}

func toOrders(snaps []reconcile.Snapshot) []Order {
	result := make([]Order, 0, len(snaps))
	for _, s := range snaps {
		result = append(result, toOrder(s))
	}
	return result
}

func toRetryResult(r commands.RetryResult) RetryResult {
	return RetryResult{Delivered: r.Delivered, Dropped: r.Dropped, Remaining: r.Remaining, Skipped: r.Skipped}
}

func toHealth(h reconcile.Health) Health {
	result := Health{
		Connected:       h.Connected(),
		RealTimeEnabled: h.RealTimeEnabled,
		RemoteReachable: h.RemoteReachable,
		PendingWrites:   h.PendingWrites,
	}
	if !h.LastReloadAt.IsZero() {
		at := h.LastReloadAt.UTC()
		result.LastReloadAt = &at
	}
	return result
}
