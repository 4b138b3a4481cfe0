package order

import (
	"errors"
	"strings"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

// MaxItemQuantity bounds a single line to catch unit mix-ups at input time.
const MaxItemQuantity = 1000

// Item is one line of an order. It is an immutable value object.
type Item struct {
	id                  string
	title               string
	price               kernel.Money
	quantity            int
	specialInstructions string
}

// NewItem validates and builds an Item. An empty id is replaced with a fresh UUID.
//
// Example:
//
//	item, err := order.NewItem("", "Pad thai", kernel.MustMoney("10"), 1, "no peanuts")
func NewItem(id, title string, price kernel.Money, quantity int, specialInstructions string) (Item, error) {
	if id == "" {
		id = kernel.NewUUID().String()
	}

	var titleErr, quantityErr error
	if strings.TrimSpace(title) == "" {
		titleErr = errs.NewValueIsRequiredError("item title")
	}
	if quantity < 1 || quantity > MaxItemQuantity {
		quantityErr = errs.NewValueIsOutOfRangeError("quantity", quantity, 1, MaxItemQuantity)
	}
	if err := errors.Join(titleErr, quantityErr); err != nil {
		return Item{}, err
	}

	return Item{
		id:                  id,
		title:               title,
		price:               price,
		quantity:            quantity,
		specialInstructions: specialInstructions,
	}, nil
}

// ID returns the item identifier.
func (i Item) ID() string { return i.id }

// Title returns the dish name.
func (i Item) Title() string { return i.title }

// Price returns the unit price.
func (i Item) Price() kernel.Money { return i.price }

// Quantity returns the number of units, always at least 1.
func (i Item) Quantity() int { return i.quantity }

// SpecialInstructions returns the optional note for the cook.
func (i Item) SpecialInstructions() string { return i.specialInstructions }

// Subtotal returns price times quantity.
func (i Item) Subtotal() kernel.Money {
	return i.price.Times(i.quantity)
}

// ItemsTotal sums the subtotals of items.
func ItemsTotal(items []Item) kernel.Money {
	total := kernel.ZeroMoney
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
