package orderevent_test

import (
	"testing"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/orderevent"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshot(t *testing.T, id string) *order.Order {
	t.Helper()
	item, err := order.NewItem("", "Ramen", kernel.MustMoney("12"), 1, "")
	require.NoError(t, err)
	draft, err := order.NewDraft(order.DraftParams{
		CookID:          "cook-1",
		CustomerID:      "cust-1",
		Items:           []order.Item{item},
		DeliveryAddress: "1 Main St",
	})
	require.NoError(t, err)
	o, err := order.NewOrder(id, draft, time.Now())
	require.NoError(t, err)
	return o
}

func TestNew(t *testing.T) {
	snapshot := newSnapshot(t, "ord-1")

	t.Run("insert", func(t *testing.T) {
		ev, err := orderevent.New(orderevent.KindInsert, "ord-1", snapshot)

		require.NoError(t, err)
		assert.IsType(t, orderevent.Inserted{}, ev)
		assert.Equal(t, "ord-1", ev.OrderID())
		assert.Same(t, snapshot, ev.Snapshot())
	})

	t.Run("update takes the id from the snapshot", func(t *testing.T) {
		ev, err := orderevent.New(orderevent.KindUpdate, "", snapshot)

		require.NoError(t, err)
		assert.IsType(t, orderevent.Updated{}, ev)
		assert.Equal(t, "ord-1", ev.OrderID())
	})

	t.Run("delete needs only the id", func(t *testing.T) {
		ev, err := orderevent.New(orderevent.KindDelete, "ord-9", nil)

		require.NoError(t, err)
		assert.Equal(t, orderevent.Deleted{ID: "ord-9"}, ev)
		assert.Nil(t, ev.Snapshot())
	})

	t.Run("update without snapshot", func(t *testing.T) {
		_, err := orderevent.New(orderevent.KindUpdate, "ord-1", nil)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("mismatched ids", func(t *testing.T) {
		_, err := orderevent.New(orderevent.KindUpdate, "ord-2", snapshot)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := orderevent.New("upsert", "ord-1", snapshot)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("delete without id", func(t *testing.T) {
		_, err := orderevent.New(orderevent.KindDelete, "", nil)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}
