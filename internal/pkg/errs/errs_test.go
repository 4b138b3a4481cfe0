package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNotFoundError(t *testing.T) {
	t.Run("NewObjectNotFoundError", func(t *testing.T) {
		err := errs.NewObjectNotFoundError("orderId", "ord-123")

		assert.Equal(t, "orderId", err.ParamName)
		assert.Equal(t, "ord-123", err.ID)
		require.NoError(t, err.Cause)
		assert.Equal(t, "object not found: ord-123", err.Error())
		assert.Equal(t, errs.ErrObjectNotFound, err.Unwrap())
	})

	t.Run("NewObjectNotFoundErrorWithCause", func(t *testing.T) {
		cause := errors.New("record not found")
		err := errs.NewObjectNotFoundErrorWithCause("orderId", "ord-123", cause)

		assert.Equal(t, cause, err.Cause)
		assert.Equal(t,
			"object not found: param is: orderId, ID is: ord-123 (cause: record not found)",
			err.Error())
	})
}

func TestValueIsInvalidError(t *testing.T) {
	t.Run("NewValueIsInvalidError", func(t *testing.T) {
		err := errs.NewValueIsInvalidError("status")

		assert.Equal(t, "value is invalid: status", err.Error())
		assert.Equal(t, errs.ErrValueIsInvalid, err.Unwrap())
	})

	t.Run("NewValueIsInvalidErrorWithCause", func(t *testing.T) {
		err := errs.NewValueIsInvalidErrorWithCause("status", errors.New("unknown"))

		assert.Equal(t, "value is invalid: status (cause: unknown)", err.Error())
	})
}

func TestValueIsOutOfRangeError(t *testing.T) {
	t.Run("NewValueIsOutOfRangeError", func(t *testing.T) {
		err := errs.NewValueIsOutOfRangeError("quantity", 0, 1, 1000)

		assert.Equal(t, 0, err.Value)
		assert.Equal(t, "value is out of range: 0 is quantity, min value is 1, max value is 1000", err.Error())
		assert.Equal(t, errs.ErrValueIsOutOfRange, err.Unwrap())
	})

	t.Run("sanitize function with newlines", func(t *testing.T) {
		err := errs.NewValueIsOutOfRangeError("title", "pad\nthai", 1, 10)
		assert.Contains(t, err.Error(), "pad thai")
		assert.NotContains(t, err.Error(), "\n")
	})
}

func TestValueIsRequiredError(t *testing.T) {
	err := errs.NewValueIsRequiredErrorWithCause("items", errors.New("empty list"))

	assert.Equal(t, "value is required: items (cause: empty list)", err.Error())
	require.ErrorIs(t, err, errs.ErrValueIsRequired)
}

func TestVersionIsInvalidError(t *testing.T) {
	err := errs.NewVersionIsInvalidError("lastModified")

	assert.Equal(t, "version is invalid: lastModified", err.Error())
	require.ErrorIs(t, err, errs.ErrVersionIsInvalid)
}

func TestNetworkError(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := errs.NewNetworkErrorWithCause("list orders", errors.New("connection refused"))

		assert.Equal(t, "network error: list orders (cause: connection refused)", err.Error())
		require.ErrorIs(t, err, errs.ErrNetwork)
		assert.True(t, errs.IsTransient(err))
	})

	t.Run("wrapped stays transient", func(t *testing.T) {
		err := fmt.Errorf("refresh: %w", errs.NewNetworkError("list orders"))

		assert.True(t, errs.IsTransient(err))
	})

	t.Run("validation errors are not transient", func(t *testing.T) {
		assert.False(t, errs.IsTransient(errs.NewValueIsInvalidError("status")))
	})
}

func TestInvalidTransitionError(t *testing.T) {
	err := errs.NewInvalidTransitionError("preparing", "picked_up", "cook", "not a lifecycle edge")

	assert.Equal(t, "invalid transition: preparing -> picked_up by cook (not a lifecycle edge)", err.Error())

	var target *errs.InvalidTransitionError
	require.ErrorAs(t, fmt.Errorf("update: %w", err), &target)
	assert.Equal(t, "preparing", target.From)
}

func TestConflictError(t *testing.T) {
	t.Run("without authoritative status", func(t *testing.T) {
		err := errs.NewConflictError("ord-1", "")
		assert.Equal(t, "order conflict: ord-1", err.Error())
	})

	t.Run("with authoritative status", func(t *testing.T) {
		err := errs.NewConflictError("ord-1", "cancelled")
		assert.Equal(t, "order conflict: ord-1 is already cancelled", err.Error())
		require.ErrorIs(t, err, errs.ErrConflict)
	})
}

func TestStorageError(t *testing.T) {
	err := errs.NewStorageErrorWithCause("save order", errors.New("disk full"))

	assert.Equal(t, "storage error: save order (cause: disk full)", err.Error())
	require.ErrorIs(t, err, errs.ErrStorage)
}

func TestSentinelErrors(t *testing.T) {
	assert.Equal(t, "object not found", errs.ErrObjectNotFound.Error())
	assert.Equal(t, "value is invalid", errs.ErrValueIsInvalid.Error())
	assert.Equal(t, "value is out of range", errs.ErrValueIsOutOfRange.Error())
	assert.Equal(t, "value is required", errs.ErrValueIsRequired.Error())
	assert.Equal(t, "version is invalid", errs.ErrVersionIsInvalid.Error())
	assert.Equal(t, "session ended", errs.ErrSessionEnded.Error())
}
