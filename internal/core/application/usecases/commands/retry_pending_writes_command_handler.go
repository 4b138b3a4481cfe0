package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

// RetryResult summarises one replay pass.
type RetryResult struct {
	Delivered int
	Dropped   int
	Remaining int
	Skipped   bool
}

// RetryPendingWritesCommandHandler delivers queued writes in FIFO order.
//
// A pass stops at the first write the remote service cannot be reached for,
// so a create is always delivered before the updates queued after it. After
// a failed pass the next one waits for the backoff interval unless forced.
// Writes made obsolete by newer remote state are dropped without a call.
type RetryPendingWritesCommandHandler struct {
	session *session.Session
	remote  ports.RemoteOrderService
	outbox  Outbox
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	backOff   backoff.BackOff
	notBefore time.Time
}

// NewRetryPendingWritesCommandHandler creates a replay handler. A nil b
// selects exponential backoff capped at five minutes.
func NewRetryPendingWritesCommandHandler(
	sess *session.Session,
	remote ports.RemoteOrderService,
	ob Outbox,
	b backoff.BackOff,
	logger *slog.Logger,
) *RetryPendingWritesCommandHandler {
	if b == nil {
		eb := backoff.NewExponentialBackOff()
		eb.MaxInterval = 5 * time.Minute
		eb.MaxElapsedTime = 0
		b = eb
	}
	return &RetryPendingWritesCommandHandler{
		session: sess,
		remote:  remote,
		outbox:  ob,
		logger:  logger.With("component", "retry_pending_writes_handler"),
		now:     time.Now,
		backOff: b,
	}
}

// Handle runs one replay pass. Passes never overlap.
func (h *RetryPendingWritesCommandHandler) Handle(
	ctx context.Context,
	cmd RetryPendingWritesCommand,
) (RetryResult, error) {
	if err := cmd.Validate(); err != nil {
		return RetryResult{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var res RetryResult
	now := h.now()
	if !cmd.Force() && now.Before(h.notBefore) {
		res.Skipped = true
		res.Remaining = len(h.outbox.PendingWrites())
		return res, nil
	}

	var lastSeq int64
	for {
		writes := h.outbox.PendingWrites()
		if len(writes) == 0 {
			break
		}
		w := writes[0]
		if w.Seq() == lastSeq {
			res.Remaining = len(writes)
			return res, fmt.Errorf("pending write %d was not consumed", w.Seq())
		}
		lastSeq = w.Seq()

		if err := ctx.Err(); err != nil {
			res.Remaining = len(writes)
			return res, err
		}

		delivered, err := h.replay(ctx, w)
		if errs.IsTransient(err) {
			_ = h.outbox.RecordWriteFailure(ctx, w, err)
			wait := h.backOff.NextBackOff()
			if wait == backoff.Stop {
				wait = 0
			}
			h.notBefore = now.Add(wait)
			res.Remaining = len(writes)
			h.logger.WarnContext(ctx, "Remote service unreachable, pending writes kept",
				"pending", res.Remaining, "retry_in", wait.String(), "error", err)
			return res, nil
		}
		if err != nil {
			res.Remaining = len(writes)
			return res, err
		}

		if delivered {
			res.Delivered++
		} else {
			res.Dropped++
		}
	}

	h.backOff.Reset()
	h.notBefore = time.Time{}
	if res.Delivered+res.Dropped > 0 {
		h.logger.InfoContext(ctx, "Pending writes replayed", "delivered", res.Delivered, "dropped", res.Dropped)
	}
	return res, nil
}

func (h *RetryPendingWritesCommandHandler) replay(ctx context.Context, w *outbox.Write) (bool, error) {
	if w.Kind() == outbox.KindCreate {
		return h.replayCreate(ctx, w)
	}
	return h.replayStatus(ctx, w)
}

func (h *RetryPendingWritesCommandHandler) replayCreate(ctx context.Context, w *outbox.Write) (bool, error) {
	gen := h.session.Generation()
	created, err := h.remote.Create(ctx, *w.Draft())
	if genErr := h.session.Check(gen); genErr != nil {
		return false, genErr
	}
	h.outbox.ObserveRemote(err)

	switch {
	case err == nil:
		_, err = h.outbox.CompleteCreate(ctx, w, created)
		return err == nil, err
	case errs.IsTransient(err):
		return false, err
	default:
		return false, h.outbox.AbandonWrite(ctx, w, err)
	}
}

func (h *RetryPendingWritesCommandHandler) replayStatus(ctx context.Context, w *outbox.Write) (bool, error) {
	current, ok := h.outbox.Get(w.OrderID())
	if !ok || !current.Pending {
		h.logger.DebugContext(ctx, "Pending write superseded", "order_id", w.OrderID(), "status", w.Status().String())
		return false, h.outbox.CompleteWrite(ctx, w)
	}

	gen := h.session.Generation()
	updated, err := h.remote.UpdateStatus(ctx, w.OrderID(), w.Status())
	if genErr := h.session.Check(gen); genErr != nil {
		return false, genErr
	}
	h.outbox.ObserveRemote(err)

	switch {
	case err == nil:
		if _, err = h.outbox.Accept(ctx, updated); err != nil && !errors.Is(err, errs.ErrObjectNotFound) {
			return false, err
		}
		return true, h.outbox.CompleteWrite(ctx, w)
	case errs.IsTransient(err):
		return false, err
	case errors.Is(err, errs.ErrObjectNotFound):
		return false, h.outbox.AbandonWrite(ctx, w, err)
	default:
		return false, h.restore(ctx, w, err)
	}
}

// restore replaces a rejected optimistic record with the remote one.
func (h *RetryPendingWritesCommandHandler) restore(ctx context.Context, w *outbox.Write, cause error) error {
	gen := h.session.Generation()
	authoritative, err := h.remote.Get(ctx, w.OrderID())
	if genErr := h.session.Check(gen); genErr != nil {
		return genErr
	}
	h.outbox.ObserveRemote(err)

	if errors.Is(err, errs.ErrObjectNotFound) {
		return h.outbox.AbandonWrite(ctx, w, cause)
	}
	if err != nil {
		return err
	}
	if _, err = h.outbox.Resolve(ctx, authoritative); err != nil && !errors.Is(err, errs.ErrObjectNotFound) {
		return err
	}

	h.logger.WarnContext(ctx, "Queued status change rejected, remote record restored",
		"order_id", w.OrderID(), "status", w.Status().String(),
		"remote_status", authoritative.Status().String(), "error", cause)
	return h.outbox.CompleteWrite(ctx, w)
}
