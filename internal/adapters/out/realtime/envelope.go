// Package realtime implements ports.RealtimeFeed over Kafka and over Postgres
// LISTEN/NOTIFY. Both transports carry the same JSON envelope:
//
//	{"kind":"insert|update|delete","order_id":"…","snapshot":{…}}
package realtime

import (
	"encoding/json"

	"ordersync/internal/adapters/out/orderdto"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/orderevent"
	"ordersync/internal/pkg/errs"
)

// Envelope is one order change on the wire.
type Envelope struct {
	Kind     orderevent.Kind    `json:"kind"`
	OrderID  string             `json:"order_id"`
	Snapshot *orderdto.OrderDTO `json:"snapshot,omitempty"`
}

// Decode parses an envelope into a typed event.
func Decode(data []byte) (orderevent.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("order change", err)
	}

	var snapshot *order.Order
	if env.Snapshot != nil {
		o, err := env.Snapshot.ToDomain()
		if err != nil {
			return nil, err
		}
		snapshot = o
	}
	return orderevent.New(env.Kind, env.OrderID, snapshot)
}

// Encode is the inverse of Decode.
func Encode(ev orderevent.Event) ([]byte, error) {
	env := Envelope{Kind: ev.Kind(), OrderID: ev.OrderID()}
	if o := ev.Snapshot(); o != nil {
		dto := orderdto.FromDomain(o)
		env.Snapshot = &dto
	}
	return json.Marshal(env)
}

// inScope filters events by owner. A bare delete carries no owners and is
// passed through; the cache knows whether it holds that order.
func inScope(scope kernel.Scope, ev orderevent.Event) bool {
	if o := ev.Snapshot(); o != nil {
		return o.IsVisibleIn(scope)
	}
	return true
}
