package queries

import (
	"errors"

	"ordersync/internal/pkg/guard"
)

var ErrGetConnectionHealthQueryIsNotConstructed = errors.New(
	"GetConnectionHealthQuery must be created via NewGetConnectionHealthQuery constructor",
)

// GetConnectionHealthQuery reports how fresh the cache is.
type GetConnectionHealthQuery struct {
	guard guard.ConstructorGuard
}

func NewGetConnectionHealthQuery() GetConnectionHealthQuery {
	return GetConnectionHealthQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetConnectionHealthQuery) Validate() error {
	return q.guard.Validate(ErrGetConnectionHealthQueryIsNotConstructed)
}
