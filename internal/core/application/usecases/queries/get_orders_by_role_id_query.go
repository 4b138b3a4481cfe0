package queries

import (
	"errors"

	"ordersync/internal/pkg/errs"
	"ordersync/internal/pkg/guard"
)

var ErrGetOrdersByRoleIDQueryIsNotConstructed = errors.New(
	"GetOrdersByRoleIDQuery must be created via NewGetOrdersByRoleIDQuery constructor",
)

// GetOrdersByRoleIDQuery lists cached orders where id is the cook or the customer.
type GetOrdersByRoleIDQuery struct {
	roleID string

	guard guard.ConstructorGuard
}

// NewGetOrdersByRoleIDQuery creates a query for a cook or customer id.
func NewGetOrdersByRoleIDQuery(roleID string) (GetOrdersByRoleIDQuery, error) {
	if roleID == "" {
		return GetOrdersByRoleIDQuery{}, errs.NewValueIsRequiredError("role id")
	}
	return GetOrdersByRoleIDQuery{roleID: roleID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrdersByRoleIDQuery) Validate() error {
	return q.guard.Validate(ErrGetOrdersByRoleIDQueryIsNotConstructed)
}

// RoleID returns the cook or customer id to filter on.
func (q GetOrdersByRoleIDQuery) RoleID() string {
	return q.roleID
}
