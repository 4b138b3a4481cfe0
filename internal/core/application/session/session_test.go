package session_test

import (
	"context"
	"errors"
	"testing"

	"ordersync/internal/core/application/session"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	actor, err := kernel.NewActor("cook-1", kernel.RoleCook, "")
	require.NoError(t, err)
	s, err := session.New(t.Context(), actor)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsUnknownRole(t *testing.T) {
	_, err := session.New(t.Context(), kernel.Actor{ID: "x", Role: "chef"})

	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestSession_Scope(t *testing.T) {
	s := newSession(t)

	assert.Equal(t, kernel.Scope{Field: kernel.ScopeCook, ID: "cook-1"}, s.Scope())
}

func TestSession_CloseReleasesInReverseOrder(t *testing.T) {
	s := newSession(t)
	var order []string
	require.NoError(t, s.Defer(func() error { order = append(order, "feed"); return nil }))
	require.NoError(t, s.Defer(func() error { order = append(order, "jobs"); return nil }))

	require.NoError(t, s.Close())

	assert.Equal(t, []string{"jobs", "feed"}, order)
	assert.True(t, s.Ended())
	require.ErrorIs(t, s.Context().Err(), context.Canceled)
}

func TestSession_GenerationGuardsStaleResults(t *testing.T) {
	s := newSession(t)
	gen := s.Generation()
	require.NoError(t, s.Check(gen))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Check(gen), errs.ErrSessionEnded)
	assert.Equal(t, gen+1, s.Generation())
}

func TestSession_DeferAfterCloseRunsImmediately(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Close())

	called := false
	err := s.Defer(func() error { called = true; return errors.New("closed twice") })

	require.EqualError(t, err, "closed twice")
	assert.True(t, called)
}

func TestSession_CloseJoinsErrors(t *testing.T) {
	s := newSession(t)
	boom := errors.New("boom")
	require.NoError(t, s.Defer(func() error { return boom }))

	require.ErrorIs(t, s.Close(), boom)
}
