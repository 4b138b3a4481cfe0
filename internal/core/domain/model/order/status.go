package order

import (
	"fmt"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Confirmed ──> Preparing ──> Ready ──> PickedUp ──> Delivered
//	    │             │
//	    └─────────────┴──> Cancelled
//
// Delivered and Cancelled are terminal. Status is serialized by name
// ("confirmed", "picked_up", ...), never by its numeric value.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Confirmed is the initial status set by checkout.
	Confirmed

	// Preparing means the cook started working on the order.
	Preparing

	// Ready means the food is waiting for pickup.
	Ready

	// PickedUp means a delivery actor has the order.
	PickedUp

	// Delivered is terminal.
	Delivered

	// Cancelled is terminal and only reachable from Confirmed or Preparing.
	Cancelled
)

var statusNames = map[Status]string{
	Confirmed: "confirmed",
	Preparing: "preparing",
	Ready:     "ready",
	PickedUp:  "picked_up",
	Delivered: "delivered",
	Cancelled: "cancelled",
}

// edges is the lifecycle graph. Anything not listed here is illegal.
var edges = map[Status][]Status{
	Confirmed: {Preparing, Cancelled},
	Preparing: {Ready, Cancelled},
	Ready:     {PickedUp},
	PickedUp:  {Delivered},
}

// issuers lists the roles allowed to request each target status.
var issuers = map[Status][]kernel.Role{
	Preparing: {kernel.RoleCook},
	Ready:     {kernel.RoleCook},
	PickedUp:  {kernel.RoleDelivery},
	Delivered: {kernel.RoleDelivery},
	Cancelled: {kernel.RoleCustomer, kernel.RoleAdmin},
}

// Statuses returns every valid status in lifecycle order.
func Statuses() []Status {
	return []Status{Confirmed, Preparing, Ready, PickedUp, Delivered, Cancelled}
}

// ParseStatus converts a wire name into a Status.
func ParseStatus(s string) (Status, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is one of the lifecycle states.
func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name of the status, or "unknown".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// HasEdgeTo reports whether next is a direct successor in the lifecycle graph.
func (s Status) HasEdgeTo(next Status) bool {
	for _, candidate := range edges[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanReach reports whether target is strictly reachable from s by following
// lifecycle edges. It orders statuses when no version marker is available:
// an incoming status is newer than a cached one exactly when the cached one
// can reach it.
func (s Status) CanReach(target Status) bool {
	visited := map[Status]bool{s: true}
	queue := []Status{s}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range edges[current] {
			if next == target {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
