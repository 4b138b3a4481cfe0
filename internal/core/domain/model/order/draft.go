package order

import (
	"errors"
	"slices"
	"strings"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
	"ordersync/internal/pkg/guard"
)

var (
	// ErrDraftIsNotConstructed is returned when a Draft bypassed NewDraft.
	ErrDraftIsNotConstructed = errors.New("Draft must be created via NewDraft constructor")

	// ErrItemsAreRequired rejects drafts with an empty item list.
	ErrItemsAreRequired = errs.NewValueIsRequiredError("items")
)

// Draft is a validated request to place an order, as produced by the checkout
// collaborator. The tracking number is minted here so that it survives an
// offline create and the later retry unchanged; the remote service uses it to
// recognise a replayed create.
type Draft struct {
	trackingNumber       string
	cookID               string
	customerID           string
	items                []Item
	fees                 kernel.Money
	deliveryAddress      string
	deliveryInstructions string
	deliveryTime         time.Time

	guard guard.ConstructorGuard
}

// DraftParams carries the checkout input of NewDraft.
type DraftParams struct {
	TrackingNumber       string
	CookID               string
	CustomerID           string
	Items                []Item
	Fees                 kernel.Money
	DeliveryAddress      string
	DeliveryInstructions string
	DeliveryTime         time.Time
}

// NewDraft validates checkout input. All violations are reported together.
// A tracking number is minted when p.TrackingNumber is empty.
func NewDraft(p DraftParams) (Draft, error) {
	var cookErr, customerErr, itemsErr, addressErr error
	if p.CookID == "" {
		cookErr = errs.NewValueIsRequiredError("cook id")
	}
	if p.CustomerID == "" {
		customerErr = errs.NewValueIsRequiredError("customer id")
	}
	if len(p.Items) == 0 {
		itemsErr = ErrItemsAreRequired
	}
	if strings.TrimSpace(p.DeliveryAddress) == "" {
		addressErr = errs.NewValueIsRequiredError("delivery address")
	}
	if err := errors.Join(cookErr, customerErr, itemsErr, addressErr); err != nil {
		return Draft{}, err
	}

	trackingNumber := p.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = NewTrackingNumber()
	}

	return Draft{
		trackingNumber:       trackingNumber,
		cookID:               p.CookID,
		customerID:           p.CustomerID,
		items:                slices.Clone(p.Items),
		fees:                 p.Fees,
		deliveryAddress:      p.DeliveryAddress,
		deliveryInstructions: p.DeliveryInstructions,
		deliveryTime:         p.DeliveryTime,
		guard:                guard.NewConstructorGuard(),
	}, nil
}

// NewTrackingNumber mints a human readable tracking number such as ORD-550E8400E2.
func NewTrackingNumber() string {
	return "ORD-" + kernel.NewUUID().Compact()[:10]
}

// Validate ensures the draft was built by NewDraft.
func (d Draft) Validate() error {
	return d.guard.Validate(ErrDraftIsNotConstructed)
}

func (d Draft) TrackingNumber() string       { return d.trackingNumber }
func (d Draft) CookID() string               { return d.cookID }
func (d Draft) CustomerID() string           { return d.customerID }
func (d Draft) Items() []Item                { return slices.Clone(d.items) }
func (d Draft) Fees() kernel.Money           { return d.fees }
func (d Draft) DeliveryAddress() string      { return d.deliveryAddress }
func (d Draft) DeliveryInstructions() string { return d.deliveryInstructions }
func (d Draft) DeliveryTime() time.Time      { return d.deliveryTime }

// TotalPrice returns the items total plus fees.
func (d Draft) TotalPrice() kernel.Money {
	return ItemsTotal(d.items).Add(d.fees)
}
