package order

import (
	"slices"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

// TransitionResult is the outcome of a legal status request.
// Changed is false when the requested status equals the current one: the
// request is idempotent and nothing must be recorded.
type TransitionResult struct {
	Status  Status
	Changed bool
}

// Transition validates a status change requested by an actor of the given role.
//
// Rules, in order:
//   - requesting the current status succeeds without change
//   - nothing leaves a terminal status
//   - the pair must be an edge of the lifecycle graph
//   - the role must be allowed to issue the requested status
//
// Every rejection is an *errs.InvalidTransitionError; current is never mutated.
//
// Example:
//
//	res, err := order.Transition(order.Preparing, order.PickedUp, kernel.RoleCook)
//	// err: invalid transition: preparing -> picked_up by cook (not a lifecycle edge)
func Transition(current, requested Status, role kernel.Role) (TransitionResult, error) {
	if err := requested.Validate(); err != nil {
		return TransitionResult{}, reject(current, requested, role, "requested status is unknown")
	}

	if current == requested {
		return TransitionResult{Status: current}, nil
	}

	if current.IsTerminal() {
		return TransitionResult{}, reject(current, requested, role, "order is terminal")
	}

	if !current.HasEdgeTo(requested) {
		if requested == Cancelled {
			return TransitionResult{}, reject(current, requested, role, "cancellation window closed")
		}
		return TransitionResult{}, reject(current, requested, role, "not a lifecycle edge")
	}

	if !slices.Contains(issuers[requested], role) {
		return TransitionResult{}, reject(current, requested, role, "role may not issue this status")
	}

	return TransitionResult{Status: requested, Changed: true}, nil
}

func reject(current, requested Status, role kernel.Role, reason string) error {
	return errs.NewInvalidTransitionError(current.String(), requested.String(), role.String(), reason)
}
