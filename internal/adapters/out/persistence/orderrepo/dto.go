// Package orderrepo persists the local order cache.
//
// Each row keeps the filterable fields in indexed columns and the complete
// order as a JSON snapshot. Rows are replaced wholesale and never deleted.
package orderrepo

import (
	"time"

	"ordersync/internal/adapters/out/orderdto"
	"ordersync/internal/core/ports"
)

// OrderDTO represents one row of the orders table.
type OrderDTO struct {
	ID           string    `gorm:"primaryKey"`
	CookID       string    `gorm:"index;not null"`
	CustomerID   string    `gorm:"index;not null"`
	Status       string    `gorm:"index;not null"`
	OrderDate    time.Time `gorm:"index;not null"`
	LastModified *time.Time
	Pending      bool   `gorm:"not null;default:false"`
	Tombstoned   bool   `gorm:"index;not null;default:false"`
	Snapshot     []byte `gorm:"not null"`
}

// TableName specifies the database table name for order rows.
func (OrderDTO) TableName() string {
	return "orders"
}

func fromDomain(record ports.StoredOrder) (OrderDTO, error) {
	snapshot, err := orderdto.Marshal(record.Order)
	if err != nil {
		return OrderDTO{}, err
	}

	o := record.Order
	var lastModified *time.Time
	if lm := o.LastModified(); !lm.IsZero() {
		lastModified = &lm
	}

	return OrderDTO{
		ID:           o.ID(),
		CookID:       o.CookID(),
		CustomerID:   o.CustomerID(),
		Status:       o.Status().String(),
		OrderDate:    o.OrderDate(),
		LastModified: lastModified,
		Pending:      record.Pending,
		Tombstoned:   record.Tombstoned,
		Snapshot:     snapshot,
	}, nil
}

func toDomain(dto OrderDTO) (ports.StoredOrder, error) {
	o, err := orderdto.Unmarshal(dto.Snapshot)
	if err != nil {
		return ports.StoredOrder{}, err
	}

	return ports.StoredOrder{
		Order:      o,
		Pending:    dto.Pending,
		Tombstoned: dto.Tombstoned,
	}, nil
}
