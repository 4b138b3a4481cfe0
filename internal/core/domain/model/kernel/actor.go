package kernel

import (
	"errors"
	"fmt"

	"ordersync/internal/pkg/errs"
)

// Role is the kind of actor a session acts as.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCook     Role = "cook"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a configuration or wire value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

// Validate rejects unknown roles.
func (r Role) Validate() error {
	switch r {
	case RoleCustomer, RoleCook, RoleDelivery, RoleAdmin:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a known role", string(r)))
	}
}

func (r Role) String() string {
	return string(r)
}

// Actor is the identity a session acts for.
//
// ScopeID is the id the actor's visibility is keyed on. It equals ID for cooks
// and customers; delivery actors carry the id of the kitchen they deliver for.
// Admins are unscoped and ScopeID is ignored.
type Actor struct {
	ID      string
	Role    Role
	ScopeID string
}

// NewActor validates and builds an Actor. An empty scopeID defaults to id.
func NewActor(id string, role Role, scopeID string) (Actor, error) {
	if scopeID == "" {
		scopeID = id
	}
	var idErr error
	if id == "" {
		idErr = errs.NewValueIsRequiredError("actor id")
	}
	if err := errors.Join(idErr, role.Validate()); err != nil {
		return Actor{}, err
	}
	return Actor{ID: id, Role: role, ScopeID: scopeID}, nil
}

// Key identifies the actor across sessions. The same id acting in another
// role is a different actor.
func (a Actor) Key() string {
	return string(a.Role) + ":" + a.ID
}

// Scope returns the role-scoped filter this actor observes orders through.
func (a Actor) Scope() Scope {
	switch a.Role {
	case RoleCook, RoleDelivery:
		return Scope{Field: ScopeCook, ID: a.ScopeID}
	case RoleCustomer:
		return Scope{Field: ScopeCustomer, ID: a.ScopeID}
	default:
		return Scope{Field: ScopeAll}
	}
}

// ScopeField names the ownership reference a Scope matches on.
type ScopeField string

const (
	ScopeCook     ScopeField = "cook_id"
	ScopeCustomer ScopeField = "customer_id"
	ScopeAll      ScopeField = ""
)

// Scope selects the orders visible to a role: a cook scope matches cookId, a
// customer scope matches customerId, the admin scope matches everything.
type Scope struct {
	Field ScopeField
	ID    string
}

// Matches reports whether an order with the given owners is visible in the scope.
func (s Scope) Matches(cookID, customerID string) bool {
	switch s.Field {
	case ScopeCook:
		return cookID == s.ID
	case ScopeCustomer:
		return customerID == s.ID
	default:
		return true
	}
}

// For narrows the scope's field to a specific id, keeping the field. The admin
// scope stays unscoped and is matched against either owner by callers.
func (s Scope) For(id string) Scope {
	return Scope{Field: s.Field, ID: id}
}

func (s Scope) String() string {
	if s.Field == ScopeAll {
		return "all"
	}
	return fmt.Sprintf("%s=%s", s.Field, s.ID)
}
