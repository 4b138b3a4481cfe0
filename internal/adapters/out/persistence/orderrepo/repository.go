package orderrepo

import (
	"context"
	"errors"

	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save inserts the record or replaces the row with the same id.
func (r *GormOrderRepository) Save(ctx context.Context, record ports.StoredOrder) error {
	if err := record.Order.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(record)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&dto).Error
}

// Get retrieves a record by order id, tombstoned or not.
func (r *GormOrderRepository) Get(ctx context.Context, id string) (ports.StoredOrder, error) {
	if id == "" {
		return ports.StoredOrder{}, errs.NewValueIsRequiredError("order id")
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.StoredOrder{}, errs.NewObjectNotFoundError("order", id)
		}
		return ports.StoredOrder{}, err
	}

	return toDomain(dto)
}

// GetAll loads every row ordered by order date. Rows whose snapshot no
// longer decodes are skipped and counted.
func (r *GormOrderRepository) GetAll(ctx context.Context) ([]ports.StoredOrder, int, error) {
	var dtos []OrderDTO
	if err := r.db.WithContext(ctx).Order("order_date, id").Find(&dtos).Error; err != nil {
		return nil, 0, err
	}

	records := make([]ports.StoredOrder, 0, len(dtos))
	skipped := 0
	for _, dto := range dtos {
		record, err := toDomain(dto)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, record)
	}

	return records, skipped, nil
}
