package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/orderevent"
	"ordersync/internal/core/domain/model/outbox"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	t0          = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	errDiskFull = errors.New("disk full")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStorage is an in-memory ports.UnitOfWorkFactory. Changes made inside a
// unit of work apply on Commit; outside one they apply at once.
type memStorage struct {
	mu         sync.Mutex
	orders     map[string]ports.StoredOrder
	writes     map[int64]memWrite
	nextSeq    int64
	saves      int
	fail       bool
	failWrites bool
}

type memWrite struct {
	owner string
	write *outbox.Write
}

func newMemStorage() *memStorage {
	return &memStorage{
		orders: make(map[string]ports.StoredOrder),
		writes: make(map[int64]memWrite),
	}
}

func (m *memStorage) Create() ports.UnitOfWork { return &memUoW{m: m} }

func (m *memStorage) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// setFailWrites makes outbox writes fail while order saves still succeed.
func (m *memStorage) setFailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

func (m *memStorage) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memStorage) stored(id string) (ports.StoredOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.orders[id]
	return r, ok
}

// queued lists every stored write regardless of owner.
func (m *memStorage) queued() []*outbox.Write {
	return m.queuedFor("")
}

func (m *memStorage) queuedFor(owner string) []*outbox.Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*outbox.Write, 0, len(m.writes))
	for _, e := range m.writes {
		if owner == "" || e.owner == owner {
			result = append(result, e.write.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *outbox.Write) int { return int(a.Seq() - b.Seq()) })
	return result
}

type memUoW struct {
	m       *memStorage
	tx      bool
	pending []func()
}

func (u *memUoW) Begin(context.Context) error {
	u.tx = true
	return nil
}

func (u *memUoW) Commit(context.Context) error {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	for _, apply := range u.pending {
		apply()
	}
	u.pending, u.tx = nil, false
	return nil
}

func (u *memUoW) Rollback(context.Context) error {
	u.pending, u.tx = nil, false
	return nil
}

// apply runs fn now or on Commit. The caller holds u.m.mu.
func (u *memUoW) apply(fn func()) {
	if u.tx {
		u.pending = append(u.pending, fn)
		return
	}
	fn()
}

func (u *memUoW) OrderRepository() ports.OrderRepository               { return memOrders{u} }
func (u *memUoW) PendingWriteRepository() ports.PendingWriteRepository { return memWrites{u} }

type memOrders struct{ u *memUoW }

func (r memOrders) Save(_ context.Context, record ports.StoredOrder) error {
	m := r.u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errDiskFull
	}
	record.Order = record.Order.Clone()
	r.u.apply(func() {
		m.orders[record.Order.ID()] = record
		m.saves++
	})
	return nil
}

func (r memOrders) Get(_ context.Context, id string) (ports.StoredOrder, error) {
	rec, ok := r.u.m.stored(id)
	if !ok {
		return ports.StoredOrder{}, errs.NewObjectNotFoundError("order", id)
	}
	return rec, nil
}

func (r memOrders) GetAll(context.Context) ([]ports.StoredOrder, int, error) {
	m := r.u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, 0, errDiskFull
	}
	result := make([]ports.StoredOrder, 0, len(m.orders))
	for _, rec := range m.orders {
		result = append(result, rec)
	}
	return result, 0, nil
}

type memWrites struct{ u *memUoW }

func (r memWrites) Add(_ context.Context, owner string, w *outbox.Write) (int64, error) {
	m := r.u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail || m.failWrites {
		return 0, errDiskFull
	}
	if w.Seq() != 0 {
		return 0, errs.NewValueIsInvalidError("seq already assigned")
	}
	m.nextSeq++
	seq := m.nextSeq
	stored := w.Clone()
	if err := stored.AssignSeq(seq); err != nil {
		return 0, err
	}
	r.u.apply(func() { m.writes[seq] = memWrite{owner: owner, write: stored} })
	return seq, nil
}

func (r memWrites) Update(_ context.Context, owner string, w *outbox.Write) error {
	m := r.u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail || m.failWrites {
		return errDiskFull
	}
	if e, ok := m.writes[w.Seq()]; !ok || e.owner != owner {
		return errs.NewObjectNotFoundError("pending write", w.Seq())
	}
	stored := w.Clone()
	r.u.apply(func() { m.writes[stored.Seq()] = memWrite{owner: owner, write: stored} })
	return nil
}

func (r memWrites) Remove(_ context.Context, owner string, seq int64) error {
	m := r.u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errDiskFull
	}
	r.u.apply(func() {
		if e, ok := m.writes[seq]; ok && e.owner == owner {
			delete(m.writes, seq)
		}
	})
	return nil
}

func (r memWrites) List(_ context.Context, owner string) ([]*outbox.Write, error) {
	return r.u.m.queuedFor(owner), nil
}

// MockRemote is a testify mock of ports.RemoteOrderService.
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

// fakeFeed hands out fakeSubs and records them.
type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
	errs []error
}

// failNext makes the next n Subscribe calls fail.
func (f *fakeFeed) failNext(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for range n {
		f.errs = append(f.errs, err)
	}
}

func (f *fakeFeed) Subscribe(context.Context, kernel.Scope) (ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	sub := &fakeSub{ch: make(chan orderevent.Event, 16)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeFeed) last() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

type fakeSub struct {
	ch     chan orderevent.Event
	once   sync.Once
	mu     sync.Mutex
	err    error
	closed bool
}

func (s *fakeSub) Events() <-chan orderevent.Event { return s.ch }

func (s *fakeSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSub) Close() error {
	s.end(nil)
	return nil
}

// drop simulates the transport detaching.
func (s *fakeSub) drop(err error) {
	s.end(err)
}

func (s *fakeSub) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.closed = true
		s.mu.Unlock()
		close(s.ch)
	})
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newItems(t *testing.T) []order.Item {
	t.Helper()
	a, err := order.NewItem("item-1", "Bibimbap", kernel.MustMoney("10"), 1, "")
	require.NoError(t, err)
	b, err := order.NewItem("item-2", "Kimchi", kernel.MustMoney("5"), 2, "")
	require.NoError(t, err)
	return []order.Item{a, b}
}

// record builds an order owned by cook-1 and cust-1 unless overridden.
func record(t *testing.T, id string, status order.Status, lastModified time.Time, owners ...string) *order.Order {
	t.Helper()
	cookID, customerID := "cook-1", "cust-1"
	if len(owners) == 2 {
		cookID, customerID = owners[0], owners[1]
	}
	o, err := order.RestoreOrder(order.Attributes{
		ID:              id,
		TrackingNumber:  "ORD-" + id,
		CookID:          cookID,
		CustomerID:      customerID,
		Items:           newItems(t),
		Status:          status,
		DeliveryAddress: "1 Main St",
		OrderDate:       t0,
		LastModified:    lastModified,
	})
	require.NoError(t, err)
	return o
}
