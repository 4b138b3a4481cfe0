// Package reconcile keeps the local order cache consistent with the remote
// order service and the realtime feed.
//
// Engine is the only writer of Store. Feed events, reload batches and local
// mutations are all applied on a single goroutine, one order at a time, using
// services.OrderReconciler to decide what is newer. Readers use Store
// directly and never wait for I/O.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/orderevent"
	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/core/domain/services"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
	"ordersync/internal/telemetry"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("ordersync/reconcile")

var (
	ErrEngineNotStarted     = errors.New("reconciliation engine is not started")
	ErrEngineAlreadyStarted = errors.New("reconciliation engine is already started")
)

// Sources reported in metrics and logs.
const (
	sourceFeed   = "feed"
	sourceReload = "reload"
	sourceLocal  = "local"
)

// Health describes how fresh the local cache can be expected to be.
type Health struct {
	// RealTimeEnabled is true while a feed subscription is attached.
	RealTimeEnabled bool

	// RemoteReachable reflects the outcome of the latest remote call.
	RemoteReachable bool

	// LastReloadAt is the time of the latest successful full reload, zero if none.
	LastReloadAt time.Time

	// PendingWrites counts local changes waiting to be delivered.
	PendingWrites int
}

// Connected reports whether the cache is live: the feed is attached and the
// remote service answers.
func (h Health) Connected() bool {
	return h.RealTimeEnabled && h.RemoteReachable
}

// Change describes an optimistic status change. Before is the rollback point.
type Change struct {
	Before  Snapshot
	After   Snapshot
	Changed bool

	// Behind is set when an earlier change to the order is still unconfirmed
	// or queued. The new change has to be delivered after it, never before.
	Behind bool
}

type op struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics reports engine activity to m.
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBackOff sets the policy used between resubscribe attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(e *Engine) { e.newBackOff = newBackOff }
}

// Engine reconciles feed events and reloads into Store.
//
// Lifecycle: NewEngine, then Start once. The engine stops with its session:
// closing the session cancels the loop, releases the feed subscription and
// makes every later call fail with errs.ErrSessionEnded.
type Engine struct {
	session    *session.Session
	store      *Store
	queue      *queue
	storage    storage
	remote     ports.RemoteOrderService
	feed       ports.RealtimeFeed
	reconciler services.OrderReconciler
	metrics    *telemetry.SyncMetrics
	logger     *slog.Logger
	now        func() time.Time
	newBackOff func() backoff.BackOff

	ops  chan op
	done chan struct{}

	// sub is owned by the loop goroutine.
	sub ports.Subscription

	reloads       singleflight.Group
	started       atomic.Bool
	resubscribing atomic.Bool

	realTime        atomic.Bool
	remoteReachable atomic.Bool
	lastReload      atomic.Int64
}

// NewEngine creates an engine for sess. feed may be nil, in which case the
// engine relies on reloads alone.
func NewEngine(
	sess *session.Session,
	store *Store,
	remote ports.RemoteOrderService,
	feed ports.RealtimeFeed,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engineLogger := logger.With("component", "reconciliation_engine", "scope", sess.Scope().String())
	e := &Engine{
		session:    sess,
		store:      store,
		queue:      newQueue(store.storage.uowFactory, sess.Actor().Key(), logger),
		storage:    storage{uowFactory: store.storage.uowFactory, logger: engineLogger},
		remote:     remote,
		feed:       feed,
		reconciler: services.NewOrderReconciler(),
		metrics:    telemetry.MustSyncMetrics(noop.NewMeterProvider().Meter("")),
		logger:     engineLogger,
		now:        time.Now,
		newBackOff: defaultBackOff,
		ops:        make(chan op),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	return b
}

// Store returns the cache the engine writes to.
func (e *Engine) Store() *Store { return e.store }

// Get returns the visible cached order with id.
func (e *Engine) Get(id string) (Snapshot, bool) { return e.store.Get(id) }

// Session returns the session the engine runs for.
func (e *Engine) Session() *session.Session { return e.session }

// Start loads the durable cache and the outbox, starts the loop and attaches
// to the feed. A storage failure degrades to an empty in-memory cache; a feed
// failure is retried in the background.
func (e *Engine) Start(ctx context.Context) error {
	if e.session.Ended() {
		return errs.ErrSessionEnded
	}
	if !e.started.CompareAndSwap(false, true) {
		return ErrEngineAlreadyStarted
	}

	if err := e.store.load(ctx, e.session.Scope()); err != nil {
		e.logger.ErrorContext(ctx, "Starting with an empty cache", "error", err)
	}
	if err := e.queue.load(ctx); err != nil {
		e.logger.ErrorContext(ctx, "Starting with an empty outbox", "error", err)
	}
	e.metrics.PendingWrites(ctx, int64(e.queue.len()))

	go e.run(e.session.Context())
	if err := e.session.Defer(func() error {
		<-e.done
		return nil
	}); err != nil {
		return err
	}

	if e.feed == nil {
		e.logger.InfoContext(ctx, "No realtime feed configured, relying on reloads")
		return nil
	}
	if err := e.subscribe(ctx); err != nil {
		e.logger.WarnContext(ctx, "Realtime feed unavailable, retrying in background", "error", err)
		e.resubscribe()
	}
	return nil
}

// Health returns the current connection state.
func (e *Engine) Health() Health {
	h := Health{
		RealTimeEnabled: e.realTime.Load(),
		RemoteReachable: e.remoteReachable.Load(),
		PendingWrites:   e.queue.len(),
	}
	if ns := e.lastReload.Load(); ns != 0 {
		h.LastReloadAt = time.Unix(0, ns)
	}
	return h
}

// ObserveRemote records the outcome of a remote call made on behalf of the
// engine's session.
func (e *Engine) ObserveRemote(err error) {
	e.remoteReachable.Store(!errs.IsTransient(err))
}

// PendingWrites returns copies of the queued writes, oldest first.
func (e *Engine) PendingWrites() []*outbox.Write {
	return e.queue.list()
}

// Reload lists every order in scope from the remote service and reconciles
// the batch. Concurrent calls share one remote call.
func (e *Engine) Reload(ctx context.Context) error {
	if !e.started.Load() {
		return ErrEngineNotStarted
	}
	_, err, shared := e.reloads.Do("reload", func() (any, error) {
		return nil, e.reload(e.session.Context())
	})
	if shared {
		e.logger.DebugContext(ctx, "Reload coalesced with one in flight")
	}
	return err
}

func (e *Engine) reload(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "reconcile.reload")
	defer span.End()

	gen := e.session.Generation()
	orders, err := e.remote.List(ctx, e.session.Scope())
	if genErr := e.session.Check(gen); genErr != nil {
		return genErr
	}
	e.ObserveRemote(err)
	if err != nil {
		e.metrics.ReloadFailed(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.WarnContext(ctx, "Reload failed, serving cached orders", "error", err)
		return err
	}

	err = e.do(ctx, func(ctx context.Context) error {
		for _, o := range orders {
			e.accept(ctx, sourceReload, o)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.lastReload.Store(e.now().UnixNano())
	e.metrics.Reloaded(ctx)
	e.logger.DebugContext(ctx, "Reload applied", "orders", len(orders))
	return nil
}

// ApplyEvent reconciles one feed event as if it came from the subscription.
func (e *Engine) ApplyEvent(ctx context.Context, ev orderevent.Event) error {
	return e.do(ctx, func(ctx context.Context) error {
		e.applyEvent(ctx, ev)
		return nil
	})
}

// ApplyLocal validates a status change requested by role and applies it
// optimistically. The new record is marked pending until Accept confirms it
// or Rollback reverts it. A request for the current status changes nothing.
// Orders outside the session scope are reported as not found.
func (e *Engine) ApplyLocal(ctx context.Context, id string, status order.Status, role kernel.Role) (Change, error) {
	var change Change
	err := e.do(ctx, func(ctx context.Context) error {
		before, ok := e.store.Get(id)
		if !ok || !before.Order.IsVisibleIn(e.session.Scope()) {
			return errs.NewObjectNotFoundError("order", id)
		}

		res, err := order.Transition(before.Order.Status(), status, role)
		if err != nil {
			return err
		}
		change = Change{Before: before, After: before, Changed: res.Changed, Behind: before.Pending || e.queue.has(id)}
		if !res.Changed {
			return nil
		}

		next := before.Order.Clone()
		if err = next.ApplyStatus(res.Status, e.now()); err != nil {
			return err
		}
		change.After = Snapshot{Order: next, Pending: true}
		_ = e.store.put(ctx, change.After)
		return nil
	})
	return change, err
}

// Rollback restores change.Before unless the optimistic record was already
// superseded by something else.
func (e *Engine) Rollback(ctx context.Context, change Change) error {
	if !change.Changed {
		return nil
	}
	return e.do(ctx, func(ctx context.Context) error {
		if !change.Before.Order.IsVisibleIn(e.session.Scope()) {
			return errs.NewObjectNotFoundError("order", change.Before.Order.ID())
		}
		current, ok := e.store.lookup(change.After.Order.ID())
		if !ok || !current.Pending || current.Tombstoned ||
			current.Order.Status() != change.After.Order.Status() ||
			!current.Order.LastModified().Equal(change.After.Order.LastModified()) {
			e.logger.DebugContext(ctx, "Optimistic change already superseded", "order_id", change.After.Order.ID())
			return nil
		}
		_ = e.store.put(ctx, change.Before)
		return nil
	})
}

// Accept reconciles a record returned by the remote service and returns the
// resulting visible record.
func (e *Engine) Accept(ctx context.Context, o *order.Order) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func(ctx context.Context) error {
		e.accept(ctx, sourceLocal, o)
		var ok bool
		if snap, ok = e.store.Get(o.ID()); !ok {
			return errs.NewObjectNotFoundError("order", o.ID())
		}
		return nil
	})
	return snap, err
}

// Resolve stores an authoritative record fetched after a conflict or a
// rejected write, replacing any optimistic state. Tombstones and scope still
// apply.
func (e *Engine) Resolve(ctx context.Context, authoritative *order.Order) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func(ctx context.Context) error {
		if !authoritative.IsVisibleIn(e.session.Scope()) {
			return errs.NewObjectNotFoundError("order", authoritative.ID())
		}
		current, ok := e.store.lookup(authoritative.ID())
		if ok && current.Tombstoned {
			return errs.NewObjectNotFoundError("order", authoritative.ID())
		}
		snap = Snapshot{Order: authoritative}
		_ = e.store.put(ctx, snap)
		e.metrics.Applied(ctx, sourceLocal, "resolve")
		return nil
	})
	return snap, err
}

// Enqueue adds a write to the outbox.
func (e *Engine) Enqueue(ctx context.Context, w *outbox.Write) error {
	return e.do(ctx, func(ctx context.Context) error {
		_ = e.queue.add(ctx, w)
		e.metrics.PendingWrites(ctx, 1)
		return nil
	})
}

// CreateProvisional stores a locally minted order as pending and queues its
// create. Both are stored in one unit of work.
func (e *Engine) CreateProvisional(ctx context.Context, o *order.Order, create *outbox.Write) (Snapshot, error) {
	snap := Snapshot{Order: o, Pending: true}
	err := e.do(ctx, func(ctx context.Context) error {
		if !o.IsProvisional() || create.Kind() != outbox.KindCreate || create.OrderID() != o.ID() {
			return errs.NewValueIsInvalidError("provisional create")
		}
		if !o.IsVisibleIn(e.session.Scope()) {
			return errs.NewObjectNotFoundError("order", o.ID())
		}

		var seq int64
		err := e.storage.write(ctx, "create provisional order", func(uow ports.UnitOfWork) (err error) {
			if err = e.store.stage(ctx, uow, snap); err != nil {
				return err
			}
			seq, err = e.queue.stageAdd(ctx, uow, create)
			return err
		})
		e.store.publish(snap)
		e.queue.push(create, seq, err)
		e.metrics.PendingWrites(ctx, 1)
		return nil
	})
	return snap, err
}

// CompleteCreate swaps a provisional order for the record created remotely.
// The provisional record is tombstoned, queued writes follow the new id and a
// status the local actor changed meanwhile stays pending on the new record.
func (e *Engine) CompleteCreate(ctx context.Context, create *outbox.Write, created *order.Order) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func(ctx context.Context) error {
		localID := create.OrderID()
		next := Snapshot{Order: created}
		var snaps []Snapshot

		if local, ok := e.store.lookup(localID); ok && !local.Tombstoned {
			if local.Order.Status() != created.Status() && created.Status().CanReach(local.Order.Status()) {
				carried := created.Clone()
				if err := carried.ApplyStatus(local.Order.Status(), e.now()); err == nil {
					next = Snapshot{Order: carried, Pending: true}
				}
			}
			local.Tombstoned = true
			local.Pending = false
			snaps = append(snaps, local)
		}

		cached, _ := e.store.lookup(created.ID())
		d := e.reconciler.Decide(e.session.Scope(), cachedOf(cached), next.Order)
		if d.Accepted() {
			snaps = append(snaps, next)
		}

		remapped := e.queue.remapped(localID, created.ID())
		_ = e.storage.write(ctx, "complete provisional create", func(uow ports.UnitOfWork) error {
			if err := e.store.stage(ctx, uow, snaps...); err != nil {
				return err
			}
			if err := e.queue.stageRemove(ctx, uow, create.Seq()); err != nil {
				return err
			}
			return e.queue.stageUpdates(ctx, uow, remapped)
		})
		e.store.publish(snaps...)
		e.queue.drop(create.Seq())
		e.queue.replace(remapped)
		e.metrics.PendingWrites(ctx, -1)

		e.logger.InfoContext(ctx, "Provisional order created remotely", "local_id", localID, "order_id", created.ID())
		snap, _ = e.store.Get(created.ID())
		return nil
	})
	return snap, err
}

// CompleteWrite removes a delivered or abandoned write from the outbox.
func (e *Engine) CompleteWrite(ctx context.Context, w *outbox.Write) error {
	return e.do(ctx, func(ctx context.Context) error {
		_ = e.queue.remove(ctx, w.Seq())
		e.metrics.PendingWrites(ctx, -1)
		return nil
	})
}

// AbandonWrite drops a write the remote service rejected for good, either a
// create it refused or an update for an order it no longer has. The local
// copy of the order is hidden.
func (e *Engine) AbandonWrite(ctx context.Context, w *outbox.Write, cause error) error {
	return e.do(ctx, func(ctx context.Context) error {
		var hidden []Snapshot
		if local, ok := e.store.lookup(w.OrderID()); ok && !local.Tombstoned {
			local.Tombstoned = true
			local.Pending = false
			hidden = append(hidden, local)
		}

		_ = e.storage.write(ctx, "abandon pending write", func(uow ports.UnitOfWork) error {
			if err := e.queue.stageRemove(ctx, uow, w.Seq()); err != nil {
				return err
			}
			return e.store.stage(ctx, uow, hidden...)
		})
		e.queue.drop(w.Seq())
		e.store.publish(hidden...)
		e.metrics.PendingWrites(ctx, -1)

		e.logger.WarnContext(ctx, "Pending write abandoned",
			"kind", string(w.Kind()), "order_id", w.OrderID(), "status", w.Status().String(), "error", cause)
		return nil
	})
}

// RecordWriteFailure counts a failed retry of w.
func (e *Engine) RecordWriteFailure(ctx context.Context, w *outbox.Write, cause error) error {
	return e.do(ctx, func(ctx context.Context) error {
		w.RecordFailure(cause)
		_ = e.queue.update(ctx, w)
		return nil
	})
}

func (e *Engine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !e.started.Load() {
		return ErrEngineNotStarted
	}

	o := op{fn: fn, done: make(chan error, 1)}
	select {
	case e.ops <- o:
	case <-e.done:
		return errs.ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-o.done:
		return err
	case <-e.done:
		select {
		case err := <-o.done:
			return err
		default:
			return errs.ErrSessionEnded
		}
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer e.detach(ctx)

	e.logger.InfoContext(ctx, "Reconciliation engine started")
	for {
		var events <-chan orderevent.Event
		if e.sub != nil {
			events = e.sub.Events()
		}

		select {
		case <-ctx.Done():
			e.logger.InfoContext(context.WithoutCancel(ctx), "Reconciliation engine stopped")
			return
		case o := <-e.ops:
			o.done <- e.safely(ctx, o.fn)
		case ev, ok := <-events:
			if !ok {
				e.lost(ctx)
				continue
			}
			e.applyEvent(ctx, ev)
		}
	}
}

func (e *Engine) safely(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconcile op panicked: %v", r)
			e.logger.ErrorContext(ctx, "Reconcile op panicked", "panic", r)
		}
	}()
	return fn(ctx)
}

func (e *Engine) applyEvent(ctx context.Context, ev orderevent.Event) {
	switch ev := ev.(type) {
	case orderevent.Inserted:
		e.accept(ctx, sourceFeed, ev.Order)
	case orderevent.Updated:
		e.accept(ctx, sourceFeed, ev.Order)
	case orderevent.Deleted:
		e.tombstone(ctx, ev)
	}
}

func (e *Engine) accept(ctx context.Context, source string, incoming *order.Order) services.Decision {
	if err := incoming.Validate(); err != nil {
		e.metrics.Discarded(ctx, source, "invalid")
		return services.Decision{Action: services.Discard, Reason: "invalid"}
	}

	cached, _ := e.store.lookup(incoming.ID())
	d := e.reconciler.Decide(e.session.Scope(), cachedOf(cached), incoming)
	if !d.Accepted() {
		e.metrics.Discarded(ctx, source, d.Reason)
		e.logger.DebugContext(ctx, "Discarded order record",
			"source", source, "order_id", incoming.ID(), "status", incoming.Status().String(), "reason", d.Reason)
		return d
	}

	_ = e.store.put(ctx, Snapshot{Order: incoming})
	e.metrics.Applied(ctx, source, d.Action.String())
	return d
}

func (e *Engine) tombstone(ctx context.Context, ev orderevent.Deleted) {
	cached, ok := e.store.lookup(ev.ID)
	switch {
	case ok && cached.Tombstoned:
		e.metrics.Discarded(ctx, sourceFeed, services.ReasonTombstoned)
		return
	case ok:
	case ev.Order != nil:
		cached = Snapshot{Order: ev.Order}
	default:
		e.metrics.Discarded(ctx, sourceFeed, "unknown order")
		return
	}
	if !cached.Order.IsVisibleIn(e.session.Scope()) {
		e.metrics.Discarded(ctx, sourceFeed, services.ReasonOutOfScope)
		return
	}

	cached.Tombstoned = true
	cached.Pending = false
	_ = e.store.put(ctx, cached)
	e.metrics.Applied(ctx, sourceFeed, "tombstone")
}

func cachedOf(s Snapshot) services.Cached {
	return services.Cached{Order: s.Order, Pending: s.Pending, Tombstoned: s.Tombstoned}
}

func (e *Engine) subscribe(ctx context.Context) error {
	sub, err := e.feed.Subscribe(e.session.Context(), e.session.Scope())
	if err != nil {
		return err
	}

	err = e.do(ctx, func(ctx context.Context) error {
		if e.sub != nil {
			_ = e.sub.Close()
		}
		e.sub = sub
		e.realTime.Store(true)
		e.logger.InfoContext(ctx, "Realtime feed attached")
		return nil
	})
	if err != nil {
		_ = sub.Close()
	}
	return err
}

// lost handles a subscription whose event channel closed. The gap is covered
// by a reload while a new subscription is negotiated.
func (e *Engine) lost(ctx context.Context) {
	cause := e.sub.Err()
	_ = e.sub.Close()
	e.sub = nil
	e.realTime.Store(false)
	e.logger.WarnContext(ctx, "Realtime feed detached, falling back to reloads", "error", cause)

	go func() {
		_ = e.Reload(ctx)
	}()
	e.resubscribe()
}

func (e *Engine) resubscribe() {
	if !e.resubscribing.CompareAndSwap(false, true) {
		return
	}

	ctx := e.session.Context()
	go func() {
		defer e.resubscribing.Store(false)

		b := backoff.WithContext(e.newBackOff(), ctx)
		err := backoff.RetryNotify(func() error {
			err := e.subscribe(ctx)
			if errors.Is(err, errs.ErrSessionEnded) {
				return backoff.Permanent(err)
			}
			return err
		}, b, func(err error, wait time.Duration) {
			e.logger.DebugContext(ctx, "Resubscribe failed", "error", err, "retry_in", wait)
		})
		if err != nil {
			return
		}
		_ = e.Reload(ctx)
	}()
}

func (e *Engine) detach(ctx context.Context) {
	if e.sub != nil {
		_ = e.sub.Close()
		e.sub = nil
	}
	e.realTime.Store(false)
	e.logger.DebugContext(context.WithoutCancel(ctx), "Realtime feed released")
}
