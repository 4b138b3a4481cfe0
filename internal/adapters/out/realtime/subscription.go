package realtime

import (
	"context"
	"sync"

	"ordersync/internal/core/domain/model/orderevent"
)

// subscription is the ports.Subscription shared by both transports. A single
// pump goroutine owns the event channel and closes it through finish.
type subscription struct {
	events chan orderevent.Event
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func newSubscription(parent context.Context) (*subscription, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &subscription{
		events: make(chan orderevent.Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

func (s *subscription) Events() <-chan orderevent.Event {
	return s.events
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.err
}

// Close stops the pump and waits for the transport to be released.
func (s *subscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

func (s *subscription) deliver(ctx context.Context, ev orderevent.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *subscription) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	close(s.events)
	close(s.done)
}
