package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork           = errors.New("network error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("order conflict")
	ErrStorage           = errors.New("storage error")

	// ErrSessionEnded is returned for work submitted after the owning session
	// was torn down. Results of in-flight calls are dropped with it.
	ErrSessionEnded = errors.New("session ended")
)

// NetworkError is a transient failure talking to the remote order service or
// the realtime transport. It is never surfaced as a hard failure: reads fall
// back to the local cache and writes are queued for retry.
type NetworkError struct {
	Op    string
	Cause error
}

func NewNetworkError(op string) *NetworkError {
	return &NetworkError{Op: op}
}

func NewNetworkErrorWithCause(op string, cause error) *NetworkError {
	return &NetworkError{Op: op, Cause: cause}
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrNetwork, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrNetwork, e.Op)
}

func (e *NetworkError) Unwrap() error {
	return ErrNetwork
}

// InvalidTransitionError rejects a status change that is not an edge of the
// order lifecycle or that the requesting role may not issue.
type InvalidTransitionError struct {
	From   string
	To     string
	Role   string
	Reason string
}

func NewInvalidTransitionError(from, to, role, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to, Role: role, Reason: reason}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s by %s (%s)", ErrInvalidTransition, e.From, e.To, e.Role, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ConflictError means the remote already mutated the order into a state the
// request is incompatible with. Current holds the authoritative status once it
// has been re-fetched, empty before that.
type ConflictError struct {
	OrderID string
	Current string
	Cause   error
}

func NewConflictError(orderID, current string) *ConflictError {
	return &ConflictError{OrderID: orderID, Current: current}
}

func NewConflictErrorWithCause(orderID, current string, cause error) *ConflictError {
	return &ConflictError{OrderID: orderID, Current: current, Cause: cause}
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrConflict, e.OrderID)
	if e.Current != "" {
		msg = fmt.Sprintf("%s is already %s", msg, e.Current)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// StorageError wraps a failed durable write. Durability degrades, availability
// does not.
type StorageError struct {
	Op    string
	Cause error
}

func NewStorageErrorWithCause(op string, cause error) *StorageError {
	return &StorageError{Op: op, Cause: cause}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s (cause: %v)", ErrStorage, e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// IsTransient reports whether err should be absorbed and retried rather than
// returned to the caller.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork)
}
