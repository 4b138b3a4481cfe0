package facade_test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/orderevent"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// fakeRemote is an in-memory order service enforcing the lifecycle graph.
type fakeRemote struct {
	mu         sync.Mutex
	orders     map[string]*order.Order
	byTracking map[string]string
	down       bool
	seq        int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		orders:     make(map[string]*order.Order),
		byTracking: make(map[string]string),
	}
}

func (r *fakeRemote) setDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *fakeRemote) unreachable(op string) error {
	if r.down {
		return errs.NewNetworkErrorWithCause(op, fmt.Errorf("connection refused"))
	}
	return nil
}

func (r *fakeRemote) Create(_ context.Context, draft order.Draft) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable("create order"); err != nil {
		return nil, err
	}
	if id, ok := r.byTracking[draft.TrackingNumber()]; ok {
		return r.orders[id].Clone(), nil
	}

	r.seq++
	o, err := order.NewOrder(fmt.Sprintf("ord-%d", r.seq), draft, time.Now())
	if err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("draft", err)
	}
	r.orders[o.ID()] = o
	r.byTracking[draft.TrackingNumber()] = o.ID()
	return o.Clone(), nil
}

func (r *fakeRemote) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable("update order status"); err != nil {
		return nil, err
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	if o.Status() != status && !o.Status().HasEdgeTo(status) {
		return nil, errs.NewConflictError(id, o.Status().String())
	}
	if err := o.ApplyStatus(status, time.Now()); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (r *fakeRemote) List(_ context.Context, scope kernel.Scope) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable("list orders"); err != nil {
		return nil, err
	}
	var result []*order.Order
	for _, o := range r.orders {
		if o.IsVisibleIn(scope) {
			result = append(result, o.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *order.Order) int { return strings.Compare(a.ID(), b.ID()) })
	return result, nil
}

func (r *fakeRemote) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable("get order"); err != nil {
		return nil, err
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	return o.Clone(), nil
}

// mutate changes an order as another actor would, bypassing role checks.
func (r *fakeRemote) mutate(id string, status order.Status) *order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[id]
	_ = o.ApplyStatus(status, time.Now())
	return o.Clone()
}

func (r *fakeRemote) statusOf(id string) order.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		return o.Status()
	}
	return order.Unknown
}

func (r *fakeRemote) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// fakeFeed hands out subscriptions that tests push events into.
type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
}

func (f *fakeFeed) Subscribe(context.Context, kernel.Scope) (ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{ch: make(chan orderevent.Event, 16)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) last() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

type fakeSub struct {
	ch   chan orderevent.Event
	once sync.Once
}

func (s *fakeSub) Events() <-chan orderevent.Event { return s.ch }
func (s *fakeSub) Err() error                      { return nil }

func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}
