package ports

import (
	"context"

	"ordersync/internal/core/domain/model/outbox"
)

// PendingWriteRepository persists the queue of remote writes awaiting retry.
// Every write belongs to the actor that queued it; owner is that actor's key
// and no call ever reaches another owner's writes.
type PendingWriteRepository interface {
	// Add stores a write and returns the seq assigned by storage. The write
	// itself is left untouched so that a rolled back transaction leaves no trace.
	Add(ctx context.Context, owner string, write *outbox.Write) (int64, error)

	// Update stores the attempt counters and order id of an existing write.
	Update(ctx context.Context, owner string, write *outbox.Write) error

	// Remove deletes the write with seq. Removing a missing write is not an error.
	Remove(ctx context.Context, owner string, seq int64) error

	// List returns every write of owner, oldest first.
	List(ctx context.Context, owner string) ([]*outbox.Write, error)
}
