package reconcile_test

import (
	"testing"
	"time"

	"ordersync/internal/core/application/reconcile"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/orderevent"
	"ordersync/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Views(t *testing.T) {
	h := newHarness(t, kernel.RoleAdmin, "admin-1",
		ports.StoredOrder{Order: record(t, "ord-b", order.Ready, t0.Add(time.Minute), "cook-1", "cust-1")},
		ports.StoredOrder{Order: record(t, "ord-a", order.Ready, t0.Add(time.Minute), "cook-2", "cust-2")},
		ports.StoredOrder{Order: record(t, "ord-c", order.Confirmed, t0, "cook-1", "cust-2")},
		ports.StoredOrder{Order: record(t, "ord-d", order.Ready, t0, "cook-1", "cust-1"), Tombstoned: true},
	)
	h.start(t)

	ids := func(snaps []reconcile.Snapshot) []string {
		result := make([]string, 0, len(snaps))
		for _, s := range snaps {
			result = append(result, s.Order.ID())
		}
		return result
	}

	assert.Equal(t, []string{"ord-a", "ord-b", "ord-c"}, ids(h.store.All()))
	assert.Equal(t, []string{"ord-a", "ord-b"}, ids(h.store.ByStatus(order.Ready)))
	assert.Equal(t, []string{"ord-b", "ord-c"}, ids(h.store.ByRoleID("cook-1")))
	assert.Equal(t, []string{"ord-a", "ord-c"}, ids(h.store.ByRoleID("cust-2")))
	assert.Empty(t, h.store.ByStatus(order.Delivered))
	assert.Equal(t, 3, h.store.Len())
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	h := newHarness(t, kernel.RoleCook, "cook-1")
	h.start(t)
	require.NoError(t, h.engine.ApplyEvent(t.Context(),
		orderevent.Inserted{Order: record(t, "ord-1", order.Confirmed, t0)}))

	snap, ok := h.store.Get("ord-1")
	require.True(t, ok)
	require.NoError(t, snap.Order.ApplyStatus(order.Cancelled, t0.Add(time.Minute)))

	assert.Equal(t, order.Confirmed, h.statusOf("ord-1"))
}

func TestStore_ConcurrentReadsDuringWrites(t *testing.T) {
	h := newHarness(t, kernel.RoleCook, "cook-1")
	h.start(t)

	events := make([]orderevent.Event, 0, 50)
	for i := range 50 {
		events = append(events, orderevent.Updated{
			Order: record(t, "ord-1", order.Confirmed, t0.Add(time.Duration(i)*time.Second)),
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ev := range events {
			_ = h.engine.ApplyEvent(t.Context(), ev)
		}
	}()

	for {
		select {
		case <-done:
			snap, ok := h.store.Get("ord-1")
			require.True(t, ok)
			assert.Equal(t, t0.Add(49*time.Second), snap.Order.LastModified())
			return
		default:
			for _, snap := range h.store.All() {
				assert.NoError(t, snap.Order.Validate())
			}
		}
	}
}
