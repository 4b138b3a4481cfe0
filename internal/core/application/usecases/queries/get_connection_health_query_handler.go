package queries

import (
	"context"

	"ordersync/internal/core/application/reconcile"
)

type GetConnectionHealthQueryHandler struct {
	reporter HealthReporter
}

func NewGetConnectionHealthQueryHandler(reporter HealthReporter) GetConnectionHealthQueryHandler {
	return GetConnectionHealthQueryHandler{reporter: reporter}
}

// Handle returns the current connection state.
func (h GetConnectionHealthQueryHandler) Handle(
	_ context.Context,
	query GetConnectionHealthQuery,
) (reconcile.Health, error) {
	if err := query.Validate(); err != nil {
		return reconcile.Health{}, err
	}
	return h.reporter.Health(), nil
}
