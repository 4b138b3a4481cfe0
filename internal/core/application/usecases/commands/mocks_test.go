package commands_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockRemote struct{ mock.Mock }

func (m *MockRemote) Create(ctx context.Context, draft order.Draft) (*order.Order, error) {
	args := m.Called(ctx, draft)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockRemote) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockRemote) List(ctx context.Context, scope kernel.Scope) ([]*order.Order, error) {
	args := m.Called(ctx, scope)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

func (m *MockRemote) Get(ctx context.Context, id string) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

// MockEngine implements OrderCreator, StatusUpdater and Reloader.
type MockEngine struct {
	mock.Mock

	observed []error
}

func (m *MockEngine) ObserveRemote(err error) { m.observed = append(m.observed, err) }

func (m *MockEngine) Accept(ctx context.Context, o *order.Order) (reconcile.Snapshot, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(reconcile.Snapshot), args.Error(1)
}

func (m *MockEngine) Resolve(ctx context.Context, o *order.Order) (reconcile.Snapshot, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(reconcile.Snapshot), args.Error(1)
}

func (m *MockEngine) CreateProvisional(
	ctx context.Context,
	o *order.Order,
	create *outbox.Write,
) (reconcile.Snapshot, error) {
	args := m.Called(ctx, o, create)
	return args.Get(0).(reconcile.Snapshot), args.Error(1)
}

func (m *MockEngine) ApplyLocal(
	ctx context.Context,
	id string,
	status order.Status,
	role kernel.Role,
) (reconcile.Change, error) {
	args := m.Called(ctx, id, status, role)
	return args.Get(0).(reconcile.Change), args.Error(1)
}

func (m *MockEngine) Rollback(ctx context.Context, change reconcile.Change) error {
	return m.Called(ctx, change).Error(0)
}

func (m *MockEngine) Enqueue(ctx context.Context, w *outbox.Write) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockEngine) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// fakeOutbox keeps a queue and a cache in memory with the engine's drop and
// remap semantics.
type fakeOutbox struct {
	mu        sync.Mutex
	writes    []*outbox.Write
	orders    map[string]reconcile.Snapshot
	failures  map[int64]int
	abandoned []int64
	observed  []error
	seq       int64
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		orders:   make(map[string]reconcile.Snapshot),
		failures: make(map[int64]int),
	}
}

func (f *fakeOutbox) add(t *testing.T, w *outbox.Write) {
	t.Helper()
	f.seq++
	require.NoError(t, w.AssignSeq(f.seq))
	f.writes = append(f.writes, w)
}

func (f *fakeOutbox) put(snap reconcile.Snapshot) { f.orders[snap.Order.ID()] = snap }

func (f *fakeOutbox) ObserveRemote(err error) { f.observed = append(f.observed, err) }

func (f *fakeOutbox) Get(id string) (reconcile.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.orders[id]
	return snap, ok
}

func (f *fakeOutbox) PendingWrites() []*outbox.Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*outbox.Write, 0, len(f.writes))
	for _, w := range f.writes {
		result = append(result, w.Clone())
	}
	return result
}

// Accept keeps a pending local record the incoming one has not caught up with.
func (f *fakeOutbox) Accept(_ context.Context, o *order.Order) (reconcile.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.orders[o.ID()]; ok && cached.Pending &&
		cached.Order.Status() != o.Status() && o.Status().CanReach(cached.Order.Status()) {
		return cached, nil
	}
	snap := reconcile.Snapshot{Order: o}
	f.orders[o.ID()] = snap
	return snap, nil
}

func (f *fakeOutbox) Resolve(_ context.Context, o *order.Order) (reconcile.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := reconcile.Snapshot{Order: o}
	f.orders[o.ID()] = snap
	return snap, nil
}

func (f *fakeOutbox) CompleteCreate(
	_ context.Context,
	create *outbox.Write,
	created *order.Order,
) (reconcile.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := reconcile.Snapshot{Order: created}
	if local, ok := f.orders[create.OrderID()]; ok && local.Order.Status() != created.Status() {
		carried := created.Clone()
		if err := carried.ApplyStatus(local.Order.Status(), local.Order.LastModified()); err == nil {
			snap = reconcile.Snapshot{Order: carried, Pending: true}
		}
	}
	delete(f.orders, create.OrderID())
	f.orders[created.ID()] = snap
	f.removeLocked(create.Seq())
	for _, w := range f.writes {
		w.RemapOrderID(create.OrderID(), created.ID())
	}
	return snap, nil
}

func (f *fakeOutbox) CompleteWrite(_ context.Context, w *outbox.Write) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(w.Seq())
	return nil
}

func (f *fakeOutbox) AbandonWrite(_ context.Context, w *outbox.Write, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(w.Seq())
	delete(f.orders, w.OrderID())
	f.abandoned = append(f.abandoned, w.Seq())
	return nil
}

func (f *fakeOutbox) RecordWriteFailure(_ context.Context, w *outbox.Write, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[w.Seq()]++
	return nil
}

func (f *fakeOutbox) removeLocked(seq int64) {
	f.writes = slices.DeleteFunc(f.writes, func(w *outbox.Write) bool { return w.Seq() == seq })
}

func newSession(t *testing.T, role kernel.Role, id string) *session.Session {
	t.Helper()
	actor, err := kernel.NewActor(id, role, "")
	require.NoError(t, err)
	sess, err := session.New(context.Background(), actor)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func newDraft(t *testing.T) order.Draft {
	t.Helper()
	item, err := order.NewItem("item-1", "Bibimbap", kernel.MustMoney("10"), 2, "")
	require.NoError(t, err)
	draft, err := order.NewDraft(order.DraftParams{
		CookID:          "cook-1",
		CustomerID:      "cust-1",
		Items:           []order.Item{item},
		Fees:            kernel.MustMoney("2.50"),
		DeliveryAddress: "1 Main St",
		DeliveryTime:    t0.Add(time.Hour),
	})
	require.NoError(t, err)
	return draft
}

func record(t *testing.T, id string, status order.Status, lastModified time.Time) *order.Order {
	t.Helper()
	item, err := order.NewItem("item-1", "Bibimbap", kernel.MustMoney("10"), 2, "")
	require.NoError(t, err)
	o, err := order.RestoreOrder(order.Attributes{
		ID:              id,
		TrackingNumber:  "ORD-" + id,
		CookID:          "cook-1",
		CustomerID:      "cust-1",
		Items:           []order.Item{item},
		Status:          status,
		DeliveryAddress: "1 Main St",
		OrderDate:       t0,
		LastModified:    lastModified,
	})
	require.NoError(t, err)
	return o
}

var (
	errUnreachable = errs.NewNetworkError("dial order service")
	errRejected    = errs.NewValueIsInvalidError("status")
)
