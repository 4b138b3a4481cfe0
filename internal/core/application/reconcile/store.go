package reconcile

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// Snapshot is a read-only copy of one cached order with its sync flags.
type Snapshot struct {
	Order *order.Order

	// Pending is set while a local change awaits remote confirmation. Pending
	// records are visible to the local actor only.
	Pending bool

	// Tombstoned records are never returned by views.
	Tombstoned bool
}

func (s Snapshot) stored() ports.StoredOrder {
	return ports.StoredOrder{Order: s.Order, Pending: s.Pending, Tombstoned: s.Tombstoned}
}

func (s Snapshot) clone() Snapshot {
	s.Order = s.Order.Clone()
	return s
}

type entry struct {
	mu   sync.RWMutex
	snap Snapshot
}

// Store is the local order cache: an in-memory index in front of durable
// storage. Reads never block on I/O. Writes are unexported and made by the
// Engine only, each one persisted before it becomes visible.
//
// The index lock guards the map; each order has its own lock so a write to
// one order never blocks readers of another.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	storage storage
	logger  *slog.Logger
}

// NewStore creates an empty store persisting through uowFactory.
func NewStore(uowFactory ports.UnitOfWorkFactory, logger *slog.Logger) *Store {
	logger = logger.With("component", "order_store")
	return &Store{
		entries: make(map[string]*entry),
		storage: storage{uowFactory: uowFactory, logger: logger},
		logger:  logger,
	}
}

// Get returns the visible order with id.
func (s *Store) Get(id string) (Snapshot, bool) {
	snap, ok := s.lookup(id)
	if !ok || snap.Tombstoned {
		return Snapshot{}, false
	}
	return snap, true
}

// All returns every visible order, oldest first.
func (s *Store) All() []Snapshot {
	return s.filter(func(Snapshot) bool { return true })
}

// ByStatus returns the visible orders in status.
func (s *Store) ByStatus(status order.Status) []Snapshot {
	return s.filter(func(snap Snapshot) bool { return snap.Order.Status() == status })
}

// ByRoleID returns the visible orders whose cook or customer is id.
func (s *Store) ByRoleID(id string) []Snapshot {
	return s.filter(func(snap Snapshot) bool {
		return snap.Order.CookID() == id || snap.Order.CustomerID() == id
	})
}

// Len counts visible orders.
func (s *Store) Len() int {
	return len(s.All())
}

func (s *Store) filter(keep func(Snapshot) bool) []Snapshot {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	result := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		snap := e.snap
		e.mu.RUnlock()
		if snap.Tombstoned || !keep(snap) {
			continue
		}
		result = append(result, snap.clone())
	}

	slices.SortFunc(result, func(a, b Snapshot) int {
		if c := a.Order.OrderDate().Compare(b.Order.OrderDate()); c != 0 {
			return c
		}
		return cmp.Compare(a.Order.ID(), b.Order.ID())
	})
	return result
}

// lookup returns the record for id including tombstones.
func (s *Store) lookup(id string) (Snapshot, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.clone(), true
}

// load replaces the in-memory index with the durable records visible in
// scope. Storage may be shared with other actors; their orders stay on disk.
func (s *Store) load(ctx context.Context, scope kernel.Scope) error {
	uow := s.storage.uowFactory.Create()
	records, skipped, err := uow.OrderRepository().GetAll(ctx)
	if err != nil {
		return errs.NewStorageErrorWithCause("load orders", err)
	}
	if skipped > 0 {
		s.logger.WarnContext(ctx, "Skipped undecodable cached orders", "count", skipped)
	}

	entries := make(map[string]*entry, len(records))
	for _, r := range records {
		if !r.Order.IsVisibleIn(scope) {
			continue
		}
		entries[r.Order.ID()] = &entry{snap: Snapshot{Order: r.Order, Pending: r.Pending, Tombstoned: r.Tombstoned}}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Loaded cached orders", "count", len(entries), "stored", len(records))
	return nil
}

// put persists snaps in one transaction and then publishes them. A storage
// failure is logged and returned, but the in-memory state is updated anyway.
func (s *Store) put(ctx context.Context, snaps ...Snapshot) error {
	err := s.storage.write(ctx, "save orders", func(uow ports.UnitOfWork) error {
		return s.stage(ctx, uow, snaps...)
	})
	s.publish(snaps...)
	return err
}

// stage writes snaps inside uow without publishing them.
func (s *Store) stage(ctx context.Context, uow ports.UnitOfWork, snaps ...Snapshot) error {
	repo := uow.OrderRepository()
	for _, snap := range snaps {
		if err := repo.Save(ctx, snap.stored()); err != nil {
			return fmt.Errorf("save order %s: %w", snap.Order.ID(), err)
		}
	}
	return nil
}

// publish makes snaps visible to readers.
func (s *Store) publish(snaps ...Snapshot) {
	for _, snap := range snaps {
		id := snap.Order.ID()

		s.mu.RLock()
		e, ok := s.entries[id]
		s.mu.RUnlock()

		if !ok {
			s.mu.Lock()
			if e, ok = s.entries[id]; !ok {
				e = &entry{}
				s.entries[id] = e
			}
			s.mu.Unlock()
		}

		e.mu.Lock()
		e.snap = snap.clone()
		e.mu.Unlock()
	}
}
