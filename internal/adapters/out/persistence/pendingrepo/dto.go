// Package pendingrepo persists the outbox of remote writes awaiting retry.
package pendingrepo

import (
	"encoding/json"
	"time"

	"ordersync/internal/adapters/out/orderdto"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/outbox"
)

// PendingWriteDTO represents one row of the pending_writes table.
// Seq is assigned by the database and is unique across owners.
type PendingWriteDTO struct {
	Seq        int64  `gorm:"primaryKey;autoIncrement"`
	Owner      string `gorm:"index;not null"`
	Kind       string `gorm:"not null"`
	OrderID    string `gorm:"index;not null"`
	Status     string `gorm:"not null"`
	Draft      []byte
	Attempts   int `gorm:"not null;default:0"`
	LastError  string
	EnqueuedAt time.Time `gorm:"not null"`
}

// TableName specifies the database table name for queued writes.
func (PendingWriteDTO) TableName() string {
	return "pending_writes"
}

func fromDomain(owner string, w *outbox.Write) (PendingWriteDTO, error) {
	a := w.Attributes()
	dto := PendingWriteDTO{
		Seq:        a.Seq,
		Owner:      owner,
		Kind:       string(a.Kind),
		OrderID:    a.OrderID,
		Status:     a.Status.String(),
		Attempts:   a.Attempts,
		LastError:  a.LastError,
		EnqueuedAt: a.EnqueuedAt,
	}
	if a.Draft != nil {
		draft, err := json.Marshal(orderdto.FromDraft(*a.Draft))
		if err != nil {
			return PendingWriteDTO{}, err
		}
		dto.Draft = draft
	}
	return dto, nil
}

func toDomain(dto PendingWriteDTO) (*outbox.Write, error) {
	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	var draft *order.Draft
	if len(dto.Draft) > 0 {
		var draftDTO orderdto.DraftDTO
		if err = json.Unmarshal(dto.Draft, &draftDTO); err != nil {
			return nil, err
		}
		d, draftErr := draftDTO.ToDomain()
		if draftErr != nil {
			return nil, draftErr
		}
		draft = &d
	}

	return outbox.Restore(outbox.Attributes{
		Seq:        dto.Seq,
		Kind:       outbox.Kind(dto.Kind),
		OrderID:    dto.OrderID,
		Draft:      draft,
		Status:     status,
		Attempts:   dto.Attempts,
		LastError:  dto.LastError,
		EnqueuedAt: dto.EnqueuedAt,
	})
}
