package commands

import (
	"errors"

	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// CreateOrderCommand represents a request to place a new order.
//
// Example:
//
//	draft, err := order.NewDraft(order.DraftParams{...})
//	cmd, err := NewCreateOrderCommand(draft)
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//
//	orderID, err := handler.Handle(ctx, cmd)
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	draft order.Draft

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand creates a command for a validated draft.
func NewCreateOrderCommand(draft order.Draft) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := cmd.setDraft(draft); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrCreateOrderCommandIsNotConstructed if validation fails.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

// Draft returns the order to place.
func (c CreateOrderCommand) Draft() order.Draft {
	return c.draft
}

func (c *CreateOrderCommand) setDraft(draft order.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	if len(draft.Items()) == 0 {
		return order.ErrItemsAreRequired
	}

	c.draft = draft
	return nil
}
