// Package orderevent defines the mutation events delivered by a realtime feed.
//
// Event is a closed union: Inserted, Updated and Deleted are its only members.
// Consumers switch on the concrete type:
//
//	switch e := ev.(type) {
//	case orderevent.Inserted:
//	case orderevent.Updated:
//	case orderevent.Deleted:
//	}
package orderevent

import (
	"fmt"

	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/errs"
)

// Kind is the wire name of an event.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is a single remote mutation of one order.
type Event interface {
	OrderID() string
	Kind() Kind
	// Snapshot returns the order carried by the event. Deleted events may carry none.
	Snapshot() *order.Order

	sealed()
}

// Inserted reports an order that became visible remotely.
type Inserted struct {
	Order *order.Order
}

func (e Inserted) OrderID() string        { return e.Order.ID() }
func (e Inserted) Kind() Kind             { return KindInsert }
func (e Inserted) Snapshot() *order.Order { return e.Order }
func (Inserted) sealed()                  {}

// Updated reports a new remote version of an order.
type Updated struct {
	Order *order.Order
}

func (e Updated) OrderID() string        { return e.Order.ID() }
func (e Updated) Kind() Kind             { return KindUpdate }
func (e Updated) Snapshot() *order.Order { return e.Order }
func (Updated) sealed()                  {}

// Deleted reports an order removed from the visible set.
type Deleted struct {
	ID    string
	Order *order.Order
}

func (e Deleted) OrderID() string        { return e.ID }
func (e Deleted) Kind() Kind             { return KindDelete }
func (e Deleted) Snapshot() *order.Order { return e.Order }
func (Deleted) sealed()                  {}

// New builds the event for kind. Insert and update require a snapshot whose id
// matches orderID when orderID is set; delete only requires an id.
func New(kind Kind, orderID string, snapshot *order.Order) (Event, error) {
	if snapshot != nil {
		if err := snapshot.Validate(); err != nil {
			return nil, err
		}
		if orderID == "" {
			orderID = snapshot.ID()
		}
		if snapshot.ID() != orderID {
			return nil, errs.NewValueIsInvalidErrorWithCause(
				"order id",
				fmt.Errorf("envelope id %s does not match snapshot id %s", orderID, snapshot.ID()),
			)
		}
	}

	switch kind {
	case KindInsert, KindUpdate:
		if snapshot == nil {
			return nil, errs.NewValueIsRequiredError("snapshot")
		}
		if kind == KindInsert {
			return Inserted{Order: snapshot}, nil
		}
		return Updated{Order: snapshot}, nil
	case KindDelete:
		if orderID == "" {
			return nil, errs.NewValueIsRequiredError("order id")
		}
		return Deleted{ID: orderID, Order: snapshot}, nil
	default:
		return nil, errs.NewValueIsInvalidError(fmt.Sprintf("event kind %q", kind))
	}
}
