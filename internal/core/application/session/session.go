// Package session scopes the lifetime of everything that runs on behalf of
// one signed-in actor: the feed subscription, the scheduled jobs and the
// in-flight remote calls whose results must be dropped after logout.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

// Session is the explicit replacement for a global "current user".
//
// Generation starts at 1 and is incremented exactly once, by Close. Work that
// captured a generation before blocking compares it with Check afterwards.
type Session struct {
	actor kernel.Actor

	ctx    context.Context
	cancel context.CancelFunc

	generation atomic.Uint64

	mu      sync.Mutex
	closers []func() error
	ended   bool
}

// New opens a session for actor. The session context is derived from parent
// and is cancelled on Close.
func New(parent context.Context, actor kernel.Actor) (*Session, error) {
	if err := actor.Role.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{actor: actor, ctx: ctx, cancel: cancel}
	s.generation.Store(1)
	return s, nil
}

func (s *Session) Actor() kernel.Actor { return s.actor }

// Scope is the visibility filter of the session's actor.
func (s *Session) Scope() kernel.Scope { return s.actor.Scope() }

// Context is cancelled when the session ends.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Generation() uint64 { return s.generation.Load() }

// Check returns errs.ErrSessionEnded when the session moved past gen.
func (s *Session) Check(gen uint64) error {
	if s.generation.Load() != gen {
		return errs.ErrSessionEnded
	}
	return nil
}

// Ended reports whether Close was called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Defer registers release to run on Close, after releases registered later.
// On an ended session release runs immediately.
func (s *Session) Defer(release func() error) error {
	s.mu.Lock()
	if !s.ended {
		s.closers = append(s.closers, release)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return release()
}

// Close ends the session: the generation moves on, the context is cancelled
// and every deferred release runs in reverse order. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	s.generation.Add(1)
	s.cancel()

	var errList []error
	for _, release := range slices.Backward(closers) {
		errList = append(errList, release())
	}
	return errors.Join(errList...)
}
