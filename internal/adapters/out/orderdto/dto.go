// Package orderdto is the JSON form of orders shared by the remote client,
// the realtime feeds and the local snapshot column.
//
// Field names are snake_case, money is a decimal string and status is its
// name. Unknown fields are ignored so that newer producers stay readable.
package orderdto

import (
	"encoding/json"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/errs"
)

type ItemDTO struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	Price               kernel.Money `json:"price"`
	Quantity            int          `json:"quantity"`
	SpecialInstructions string       `json:"special_instructions,omitempty"`
}

// OrderDTO is one order on the wire.
type OrderDTO struct {
	ID                   string        `json:"id"`
	TrackingNumber       string        `json:"tracking_number"`
	CookID               string        `json:"cook_id"`
	CustomerID           string        `json:"customer_id"`
	Items                []ItemDTO     `json:"items"`
	Status               order.Status  `json:"status"`
	Fees                 kernel.Money  `json:"fees"`
	TotalPrice           *kernel.Money `json:"total_price,omitempty"`
	DeliveryAddress      string        `json:"delivery_address"`
	DeliveryInstructions string        `json:"delivery_instructions,omitempty"`
	DeliveryTime         *time.Time    `json:"delivery_time,omitempty"`
	OrderDate            time.Time     `json:"order_date"`
	LastModified         *time.Time    `json:"last_modified,omitempty"`
}

// DraftDTO is the body of a create request.
type DraftDTO struct {
	TrackingNumber       string       `json:"tracking_number"`
	CookID               string       `json:"cook_id"`
	CustomerID           string       `json:"customer_id"`
	Items                []ItemDTO    `json:"items"`
	Fees                 kernel.Money `json:"fees"`
	DeliveryAddress      string       `json:"delivery_address"`
	DeliveryInstructions string       `json:"delivery_instructions,omitempty"`
	DeliveryTime         *time.Time   `json:"delivery_time,omitempty"`
}

// FromDomain converts an order to its wire form.
func FromDomain(o *order.Order) OrderDTO {
	a := o.Attributes()
	return OrderDTO{
		ID:                   a.ID,
		TrackingNumber:       a.TrackingNumber,
		CookID:               a.CookID,
		CustomerID:           a.CustomerID,
		Items:                fromItems(a.Items),
		Status:               a.Status,
		Fees:                 a.Fees,
		TotalPrice:           a.TotalPrice,
		DeliveryAddress:      a.DeliveryAddress,
		DeliveryInstructions: a.DeliveryInstructions,
		DeliveryTime:         optionalTime(a.DeliveryTime),
		OrderDate:            a.OrderDate,
		LastModified:         optionalTime(a.LastModified),
	}
}

// ToDomain validates the DTO and restores the order.
func (d OrderDTO) ToDomain() (*order.Order, error) {
	items, err := toItems(d.Items)
	if err != nil {
		return nil, err
	}
	return order.RestoreOrder(order.Attributes{
		ID:                   d.ID,
		TrackingNumber:       d.TrackingNumber,
		CookID:               d.CookID,
		CustomerID:           d.CustomerID,
		Items:                items,
		Status:               d.Status,
		Fees:                 d.Fees,
		TotalPrice:           d.TotalPrice,
		DeliveryAddress:      d.DeliveryAddress,
		DeliveryInstructions: d.DeliveryInstructions,
		DeliveryTime:         valueOf(d.DeliveryTime),
		OrderDate:            d.OrderDate,
		LastModified:         valueOf(d.LastModified),
	})
}

// FromDraft converts a draft to its wire form.
func FromDraft(draft order.Draft) DraftDTO {
	return DraftDTO{
		TrackingNumber:       draft.TrackingNumber(),
		CookID:               draft.CookID(),
		CustomerID:           draft.CustomerID(),
		Items:                fromItems(draft.Items()),
		Fees:                 draft.Fees(),
		DeliveryAddress:      draft.DeliveryAddress(),
		DeliveryInstructions: draft.DeliveryInstructions(),
		DeliveryTime:         optionalTime(draft.DeliveryTime()),
	}
}

// ToDomain validates the DTO and builds a draft.
func (d DraftDTO) ToDomain() (order.Draft, error) {
	items, err := toItems(d.Items)
	if err != nil {
		return order.Draft{}, err
	}
	return order.NewDraft(order.DraftParams{
		TrackingNumber:       d.TrackingNumber,
		CookID:               d.CookID,
		CustomerID:           d.CustomerID,
		Items:                items,
		Fees:                 d.Fees,
		DeliveryAddress:      d.DeliveryAddress,
		DeliveryInstructions: d.DeliveryInstructions,
		DeliveryTime:         valueOf(d.DeliveryTime),
	})
}

// Marshal encodes o.
func Marshal(o *order.Order) ([]byte, error) {
	return json.Marshal(FromDomain(o))
}

// Unmarshal decodes and validates one order.
func Unmarshal(data []byte) (*order.Order, error) {
	var dto OrderDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("order json", err)
	}
	return dto.ToDomain()
}

func fromItems(items []order.Item) []ItemDTO {
	result := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		result = append(result, ItemDTO{
			ID:                  item.ID(),
			Title:               item.Title(),
			Price:               item.Price(),
			Quantity:            item.Quantity(),
			SpecialInstructions: item.SpecialInstructions(),
		})
	}
	return result
}

func toItems(dtos []ItemDTO) ([]order.Item, error) {
	items := make([]order.Item, 0, len(dtos))
	for _, dto := range dtos {
		item, err := order.NewItem(dto.ID, dto.Title, dto.Price, dto.Quantity, dto.SpecialInstructions)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func valueOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
