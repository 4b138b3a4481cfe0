package reconcile

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// queue is the write-through outbox of remote writes awaiting retry. It holds
// only the writes of owner, the actor of the session.
// Like Store it is mutated from the engine loop only.
//
// Stored writes carry the seq storage assigned. A write that could not be
// stored gets a negative seq and lives in memory only.
type queue struct {
	mu       sync.Mutex
	writes   []*outbox.Write
	localSeq int64

	owner   string
	storage storage
}

func newQueue(uowFactory ports.UnitOfWorkFactory, owner string, logger *slog.Logger) *queue {
	return &queue{
		owner:   owner,
		storage: storage{uowFactory: uowFactory, logger: logger.With("component", "pending_writes")},
	}
}

func (q *queue) load(ctx context.Context) error {
	writes, err := q.storage.uowFactory.Create().PendingWriteRepository().List(ctx, q.owner)
	if err != nil {
		return errs.NewStorageErrorWithCause("load pending writes", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.writes = writes
	return nil
}

func (q *queue) list() []*outbox.Write {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]*outbox.Write, len(q.writes))
	for i, w := range q.writes {
		result[i] = w.Clone()
	}
	return result
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.writes)
}

// has reports whether a write for orderID is queued.
func (q *queue) has(orderID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.ContainsFunc(q.writes, func(w *outbox.Write) bool { return w.OrderID() == orderID })
}

func (q *queue) add(ctx context.Context, w *outbox.Write) error {
	var seq int64
	err := q.storage.write(ctx, "add pending write", func(uow ports.UnitOfWork) (err error) {
		seq, err = q.stageAdd(ctx, uow, w)
		return err
	})
	q.push(w, seq, err)
	return err
}

func (q *queue) stageAdd(ctx context.Context, uow ports.UnitOfWork, w *outbox.Write) (int64, error) {
	return uow.PendingWriteRepository().Add(ctx, q.owner, w)
}

// push appends w under the seq storage assigned, or under a local seq when
// the write was not stored.
func (q *queue) push(w *outbox.Write, seq int64, storeErr error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if storeErr != nil || seq <= 0 {
		q.localSeq--
		seq = q.localSeq
	}
	_ = w.AssignSeq(seq)
	q.writes = append(q.writes, w.Clone())
}

func (q *queue) remove(ctx context.Context, seq int64) error {
	var err error
	if seq > 0 {
		err = q.storage.write(ctx, "remove pending write", func(uow ports.UnitOfWork) error {
			return q.stageRemove(ctx, uow, seq)
		})
	}
	q.drop(seq)
	return err
}

func (q *queue) stageRemove(ctx context.Context, uow ports.UnitOfWork, seq int64) error {
	if seq <= 0 {
		return nil
	}
	return uow.PendingWriteRepository().Remove(ctx, q.owner, seq)
}

func (q *queue) drop(seq int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.writes = slices.DeleteFunc(q.writes, func(w *outbox.Write) bool { return w.Seq() == seq })
}

func (q *queue) update(ctx context.Context, w *outbox.Write) error {
	var err error
	if w.IsStored() {
		err = q.storage.write(ctx, "update pending write", func(uow ports.UnitOfWork) error {
			return uow.PendingWriteRepository().Update(ctx, q.owner, w)
		})
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i, queued := range q.writes {
		if queued.Seq() == w.Seq() {
			q.writes[i] = w.Clone()
		}
	}
	return err
}

// remapped returns copies of the queued writes for from, moved to to.
func (q *queue) remapped(from, to string) []*outbox.Write {
	q.mu.Lock()
	defer q.mu.Unlock()

	var changed []*outbox.Write
	for _, w := range q.writes {
		if w.OrderID() == from {
			cp := w.Clone()
			cp.RemapOrderID(from, to)
			changed = append(changed, cp)
		}
	}
	return changed
}

func (q *queue) stageUpdates(ctx context.Context, uow ports.UnitOfWork, writes []*outbox.Write) error {
	repo := uow.PendingWriteRepository()
	for _, w := range writes {
		if !w.IsStored() {
			continue
		}
		if err := repo.Update(ctx, q.owner, w); err != nil {
			return err
		}
	}
	return nil
}

// replace swaps queued writes for the given copies, matching on seq.
func (q *queue) replace(writes []*outbox.Write) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, w := range writes {
		for i, queued := range q.writes {
			if queued.Seq() == w.Seq() {
				q.writes[i] = w.Clone()
			}
		}
	}
}
