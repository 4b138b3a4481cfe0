package services

import (
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
)

// Action is the outcome of reconciling one incoming record.
type Action int

const (
	Discard Action = iota
	Insert
	Replace
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "insert"
	case Replace:
		return "replace"
	default:
		return "discard"
	}
}

// Reasons reported with a Discard decision.
const (
	ReasonOutOfScope = "out of scope"
	ReasonTombstoned = "tombstoned"
	ReasonTerminal   = "cached order is terminal"
	ReasonStale      = "not newer than cached"
)

// Cached is the local view of one order as the reconciler needs it.
// A zero Cached means the order is unknown locally.
type Cached struct {
	Order      *order.Order
	Pending    bool
	Tombstoned bool
}

// Decision tells the caller what to do with an incoming record.
type Decision struct {
	Action Action
	Reason string
}

// Accepted reports whether the incoming record should be stored.
func (d Decision) Accepted() bool {
	return d.Action != Discard
}

// OrderReconciler applies the per-order staleness rule shared by feed events,
// reload batches and remote responses. It is stateless; the zero value is ready.
//
// Rules, in order:
//   - records outside the session scope are discarded
//   - tombstoned ids stay hidden
//   - unknown orders are inserted
//   - a terminal cached order never changes
//   - a pending cached order yields to any incoming record at the same status
//     or further along the lifecycle, since its version was stamped locally
//   - otherwise the record with the later LastModified wins; when either side
//     lacks a version the incoming record wins only if its status is strictly
//     reachable from the cached one
//
// Example:
//
//	d := services.NewOrderReconciler().Decide(scope, cached, incoming)
//	if d.Accepted() {
//	    store.put(incoming)
//	}
type OrderReconciler struct{}

func NewOrderReconciler() OrderReconciler {
	return OrderReconciler{}
}

// Decide compares incoming against cached. incoming must be a constructed order.
func (r OrderReconciler) Decide(scope kernel.Scope, cached Cached, incoming *order.Order) Decision {
	if !incoming.IsVisibleIn(scope) {
		return Decision{Action: Discard, Reason: ReasonOutOfScope}
	}
	if cached.Tombstoned {
		return Decision{Action: Discard, Reason: ReasonTombstoned}
	}
	if cached.Order == nil {
		return Decision{Action: Insert}
	}
	if cached.Order.IsTerminal() {
		return Decision{Action: Discard, Reason: ReasonTerminal}
	}

	if cached.Pending {
		current := cached.Order.Status()
		if incoming.Status() == current || current.CanReach(incoming.Status()) {
			return Decision{Action: Replace}
		}
		return Decision{Action: Discard, Reason: ReasonStale}
	}

	if r.IsNewer(cached.Order, incoming) {
		return Decision{Action: Replace}
	}
	return Decision{Action: Discard, Reason: ReasonStale}
}

// IsNewer reports whether incoming is strictly newer than cached.
func (OrderReconciler) IsNewer(cached, incoming *order.Order) bool {
	if !cached.LastModified().IsZero() && !incoming.LastModified().IsZero() {
		return incoming.LastModified().After(cached.LastModified())
	}
	return cached.Status().CanReach(incoming.Status())
}
