// Package outbox models remote writes that could not be delivered and wait
// for a retry. Writes are replayed oldest first; a create for a provisional
// order always precedes the status updates queued against it.
package outbox

import (
	"errors"
	"fmt"
	"time"

	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/errs"
)

// Kind tells which remote operation a write replays.
type Kind string

const (
	KindCreate       Kind = "create"
	KindUpdateStatus Kind = "update_status"
)

func (k Kind) Validate() error {
	switch k {
	case KindCreate, KindUpdateStatus:
		return nil
	default:
		return errs.NewValueIsInvalidError(fmt.Sprintf("write kind %q", k))
	}
}

var ErrWriteIsNotConstructed = errors.New("Write must be created via NewCreate or NewStatusUpdate constructor")

// Write is one queued remote mutation.
type Write struct {
	seq        int64
	kind       Kind
	orderID    string
	draft      *order.Draft
	status     order.Status
	attempts   int
	lastError  string
	enqueuedAt time.Time

	isConstructed bool
}

// Attributes is the flat form of a Write used by storage.
type Attributes struct {
	Seq        int64
	Kind       Kind
	OrderID    string
	Draft      *order.Draft
	Status     order.Status
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

// NewCreate queues the create of a provisional order.
func NewCreate(provisionalID string, draft order.Draft, now time.Time) (*Write, error) {
	return Restore(Attributes{
		Kind:       KindCreate,
		OrderID:    provisionalID,
		Draft:      &draft,
		Status:     order.Confirmed,
		EnqueuedAt: now,
	})
}

// NewStatusUpdate queues a status change of orderID.
func NewStatusUpdate(orderID string, status order.Status, now time.Time) (*Write, error) {
	return Restore(Attributes{
		Kind:       KindUpdateStatus,
		OrderID:    orderID,
		Status:     status,
		EnqueuedAt: now,
	})
}

// Restore rebuilds a write from storage.
func Restore(a Attributes) (*Write, error) {
	var idErr, draftErr error
	if a.OrderID == "" {
		idErr = errs.NewValueIsRequiredError("order id")
	}
	if a.Kind == KindCreate {
		if a.Draft == nil {
			draftErr = errs.NewValueIsRequiredError("draft")
		} else {
			draftErr = a.Draft.Validate()
		}
	}
	if err := errors.Join(a.Kind.Validate(), idErr, draftErr, a.Status.Validate()); err != nil {
		return nil, err
	}

	return &Write{
		seq:           a.Seq,
		kind:          a.Kind,
		orderID:       a.OrderID,
		draft:         a.Draft,
		status:        a.Status,
		attempts:      a.Attempts,
		lastError:     a.LastError,
		enqueuedAt:    a.EnqueuedAt,
		isConstructed: true,
	}, nil
}

func (w *Write) Validate() error {
	if w == nil || !w.isConstructed {
		return ErrWriteIsNotConstructed
	}
	return nil
}

func (w *Write) Seq() int64            { return w.seq }
func (w *Write) IsStored() bool        { return w.seq > 0 }
func (w *Write) Kind() Kind            { return w.kind }
func (w *Write) OrderID() string       { return w.orderID }
func (w *Write) Draft() *order.Draft   { return w.draft }
func (w *Write) Status() order.Status  { return w.status }
func (w *Write) Attempts() int         { return w.attempts }
func (w *Write) LastError() string     { return w.lastError }
func (w *Write) EnqueuedAt() time.Time { return w.enqueuedAt }

// AssignSeq fixes the position of the write in the queue. It may be called once.
// Positive seqs come from storage; negative ones mark writes kept in memory only.
func (w *Write) AssignSeq(seq int64) error {
	if w.seq != 0 {
		return errs.NewValueIsInvalidError("seq already assigned")
	}
	if seq == 0 {
		return errs.NewValueIsRequiredError("seq")
	}
	w.seq = seq
	return nil
}

// RecordFailure counts a failed delivery attempt.
func (w *Write) RecordFailure(err error) {
	w.attempts++
	if err != nil {
		w.lastError = err.Error()
	}
}

// RemapOrderID moves a write from a provisional id to the id assigned by the
// remote service. It reports whether the write referenced from.
func (w *Write) RemapOrderID(from, to string) bool {
	if w.orderID != from {
		return false
	}
	w.orderID = to
	return true
}

// Attributes returns the flat form of the write.
func (w *Write) Attributes() Attributes {
	return Attributes{
		Seq:        w.seq,
		Kind:       w.kind,
		OrderID:    w.orderID,
		Draft:      w.draft,
		Status:     w.status,
		Attempts:   w.attempts,
		LastError:  w.lastError,
		EnqueuedAt: w.enqueuedAt,
	}
}

// Clone returns an independent copy.
func (w *Write) Clone() *Write {
	if w == nil {
		return nil
	}
	cp := *w
	return &cp
}
