package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

// ProvisionalIDPrefix marks ids minted locally for orders created while the
// remote service was unreachable.
const ProvisionalIDPrefix = "local-"

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder, NewProvisionalOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	// ErrOrderIsTerminal rejects any mutation of a delivered or cancelled order.
	ErrOrderIsTerminal = errors.New("order is terminal")
)

// Order is the aggregate root of the lifecycle synchronization core.
//
// Order follows these invariants:
//   - ID and tracking number are set and never change
//   - Items are non-empty
//   - TotalPrice equals the items total plus fees
//   - OrderDate is immutable and LastModified never moves backwards
//   - Once terminal, nothing changes
//
// Order values handed out by the store are private copies; mutate only through
// methods.
type Order struct {
	id                   string
	trackingNumber       string
	cookID               string
	customerID           string
	items                []Item
	status               Status
	fees                 kernel.Money
	deliveryAddress      string
	deliveryInstructions string
	deliveryTime         time.Time
	orderDate            time.Time
	lastModified         time.Time

	isConstructed bool
}

// Attributes is the flat form of an Order used to restore it from the remote
// service, the realtime feed or local storage.
//
// TotalPrice is optional. When present it must equal the items total plus fees.
// A zero LastModified means the source carried no version marker.
type Attributes struct {
	ID                   string
	TrackingNumber       string
	CookID               string
	CustomerID           string
	Items                []Item
	Status               Status
	Fees                 kernel.Money
	TotalPrice           *kernel.Money
	DeliveryAddress      string
	DeliveryInstructions string
	DeliveryTime         time.Time
	OrderDate            time.Time
	LastModified         time.Time
}

// NewOrder creates a confirmed order for a draft accepted under id.
//
// Example:
//
//	o, err := order.NewOrder(serverID, draft, time.Now())
func NewOrder(id string, draft Draft, orderDate time.Time) (*Order, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	return RestoreOrder(Attributes{
		ID:                   id,
		TrackingNumber:       draft.TrackingNumber(),
		CookID:               draft.CookID(),
		CustomerID:           draft.CustomerID(),
		Items:                draft.Items(),
		Status:               Confirmed,
		Fees:                 draft.Fees(),
		DeliveryAddress:      draft.DeliveryAddress(),
		DeliveryInstructions: draft.DeliveryInstructions(),
		DeliveryTime:         draft.DeliveryTime(),
		OrderDate:            orderDate,
		LastModified:         orderDate,
	})
}

// NewProvisionalOrder creates a confirmed order under a locally minted id. It
// stands in for the remote record until the queued create succeeds.
func NewProvisionalOrder(draft Draft, now time.Time) (*Order, error) {
	return NewOrder(ProvisionalIDPrefix+kernel.NewUUID().String(), draft, now)
}

// IsProvisionalID reports whether id was minted locally.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalIDPrefix)
}

// RestoreOrder rebuilds an order from its attributes, validating every invariant.
func RestoreOrder(a Attributes) (*Order, error) {
	o := &Order{isConstructed: true}

	if err := errors.Join(
		o.setID(a.ID),
		o.setTrackingNumber(a.TrackingNumber),
		o.setOwners(a.CookID, a.CustomerID),
		o.setItems(a.Items),
		o.setStatus(a.Status),
		o.setDelivery(a.DeliveryAddress, a.DeliveryInstructions, a.DeliveryTime),
		o.setDates(a.OrderDate, a.LastModified),
	); err != nil {
		return nil, err
	}

	o.fees = a.Fees
	if a.TotalPrice != nil && !a.TotalPrice.IsEqual(o.TotalPrice()) {
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"total price",
			fmt.Errorf("%s does not equal items %s plus fees %s", a.TotalPrice, ItemsTotal(o.items), o.fees),
		)
	}

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// IsEqual compares two orders by identity.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id == other.id
}

func (o *Order) ID() string                   { return o.id }
func (o *Order) TrackingNumber() string       { return o.trackingNumber }
func (o *Order) CookID() string               { return o.cookID }
func (o *Order) CustomerID() string           { return o.customerID }
func (o *Order) Items() []Item                { return slices.Clone(o.items) }
func (o *Order) Status() Status               { return o.status }
func (o *Order) Fees() kernel.Money           { return o.fees }
func (o *Order) DeliveryAddress() string      { return o.deliveryAddress }
func (o *Order) DeliveryInstructions() string { return o.deliveryInstructions }
func (o *Order) DeliveryTime() time.Time      { return o.deliveryTime }
func (o *Order) OrderDate() time.Time         { return o.orderDate }
func (o *Order) LastModified() time.Time      { return o.lastModified }

// ItemsTotal returns Σ(price × quantity) over the items.
func (o *Order) ItemsTotal() kernel.Money {
	return ItemsTotal(o.items)
}

// TotalPrice returns the items total plus fees.
func (o *Order) TotalPrice() kernel.Money {
	return o.ItemsTotal().Add(o.fees)
}

// IsTerminal reports whether the order is delivered or cancelled.
func (o *Order) IsTerminal() bool {
	return o.status.IsTerminal()
}

// IsProvisional reports whether the order only exists locally.
func (o *Order) IsProvisional() bool {
	return IsProvisionalID(o.id)
}

// IsVisibleIn reports whether the order belongs to scope.
func (o *Order) IsVisibleIn(scope kernel.Scope) bool {
	return scope.Matches(o.cookID, o.customerID)
}

// Attributes returns the flat form of the order, TotalPrice included.
func (o *Order) Attributes() Attributes {
	total := o.TotalPrice()
	return Attributes{
		ID:                   o.id,
		TrackingNumber:       o.trackingNumber,
		CookID:               o.cookID,
		CustomerID:           o.customerID,
		Items:                o.Items(),
		Status:               o.status,
		Fees:                 o.fees,
		TotalPrice:           &total,
		DeliveryAddress:      o.deliveryAddress,
		DeliveryInstructions: o.deliveryInstructions,
		DeliveryTime:         o.deliveryTime,
		OrderDate:            o.orderDate,
		LastModified:         o.lastModified,
	}
}

// Clone returns an independent copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.items = slices.Clone(o.items)
	return &cp
}

// ApplyStatus moves the order to next and stamps LastModified with at.
// Legality by role is decided beforehand by Transition; ApplyStatus only
// guards the aggregate invariants. LastModified is kept strictly increasing
// even if at is behind it.
func (o *Order) ApplyStatus(next Status, at time.Time) error {
	if o.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrOrderIsTerminal, o.id, o.status)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if o.status == next {
		return nil
	}

	o.status = next
	if !at.After(o.lastModified) {
		at = o.lastModified.Add(time.Nanosecond)
	}
	o.lastModified = at
	return nil
}

func (o *Order) setID(id string) error {
	if id == "" {
		return errs.NewValueIsRequiredError("order id")
	}
	o.id = id
	return nil
}

func (o *Order) setTrackingNumber(trackingNumber string) error {
	if trackingNumber == "" {
		return errs.NewValueIsRequiredError("tracking number")
	}
	o.trackingNumber = trackingNumber
	return nil
}

func (o *Order) setOwners(cookID, customerID string) error {
	var cookErr, customerErr error
	if cookID == "" {
		cookErr = errs.NewValueIsRequiredError("cook id")
	}
	if customerID == "" {
		customerErr = errs.NewValueIsRequiredError("customer id")
	}
	o.cookID = cookID
	o.customerID = customerID
	return errors.Join(cookErr, customerErr)
}

func (o *Order) setItems(items []Item) error {
	if len(items) == 0 {
		return ErrItemsAreRequired
	}
	for _, item := range items {
		if item.quantity < 1 {
			return errs.NewValueIsOutOfRangeError("quantity", item.quantity, 1, MaxItemQuantity)
		}
	}
	o.items = slices.Clone(items)
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setDelivery(address, instructions string, deliveryTime time.Time) error {
	if strings.TrimSpace(address) == "" {
		return errs.NewValueIsRequiredError("delivery address")
	}
	o.deliveryAddress = address
	o.deliveryInstructions = instructions
	o.deliveryTime = deliveryTime
	return nil
}

func (o *Order) setDates(orderDate, lastModified time.Time) error {
	if orderDate.IsZero() {
		return errs.NewValueIsRequiredError("order date")
	}
	if !lastModified.IsZero() && lastModified.Before(orderDate) {
		return errs.NewVersionIsInvalidErrorWithCause(
			"last modified",
			fmt.Errorf("%s is before order date %s", lastModified.Format(time.RFC3339Nano), orderDate.Format(time.RFC3339Nano)),
		)
	}
	o.orderDate = orderDate
	o.lastModified = lastModified
	return nil
}
