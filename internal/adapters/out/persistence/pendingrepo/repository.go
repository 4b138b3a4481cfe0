package pendingrepo

import (
	"context"

	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormPendingWriteRepository implements ports.PendingWriteRepository using GORM.
type GormPendingWriteRepository struct {
	db *gorm.DB
}

// NewGormPendingWriteRepository creates a new GORM outbox repository.
func NewGormPendingWriteRepository(db *gorm.DB) *GormPendingWriteRepository {
	return &GormPendingWriteRepository{db: db}
}

// Add inserts a write for owner and returns the seq the database assigned.
func (r *GormPendingWriteRepository) Add(ctx context.Context, owner string, w *outbox.Write) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if owner == "" {
		return 0, errs.NewValueIsRequiredError("owner")
	}
	if w.Seq() != 0 {
		return 0, errs.NewValueIsInvalidError("seq already assigned")
	}

	dto, err := fromDomain(owner, w)
	if err != nil {
		return 0, err
	}
	if err = r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return 0, err
	}
	return dto.Seq, nil
}

// Update stores the order id and attempt counters of an existing write.
func (r *GormPendingWriteRepository) Update(ctx context.Context, owner string, w *outbox.Write) error {
	if err := w.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(owner, w)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&PendingWriteDTO{}).
		Where("seq = ? AND owner = ?", dto.Seq, owner).
		Updates(map[string]any{
			"order_id":   dto.OrderID,
			"attempts":   dto.Attempts,
			"last_error": dto.LastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("pending write", dto.Seq)
	}
	return nil
}

// Remove deletes the write with seq if owner queued it.
func (r *GormPendingWriteRepository) Remove(ctx context.Context, owner string, seq int64) error {
	return r.db.WithContext(ctx).Delete(&PendingWriteDTO{}, "seq = ? AND owner = ?", seq, owner).Error
}

// List returns every write queued by owner in seq order.
func (r *GormPendingWriteRepository) List(ctx context.Context, owner string) ([]*outbox.Write, error) {
	var dtos []PendingWriteDTO
	if err := r.db.WithContext(ctx).Where("owner = ?", owner).Order("seq").Find(&dtos).Error; err != nil {
		return nil, err
	}

	writes := make([]*outbox.Write, 0, len(dtos))
	for _, dto := range dtos {
		w, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	return writes, nil
}
