// Package errs provides standardized error types for the order synchronization core.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes validation errors shared by the domain model:
//   - ValueIsRequiredError: For when a required value is missing
//   - ValueIsInvalidError: For when a value is invalid
//   - ValueIsOutOfRangeError: For when a value falls outside its bounds
//   - ObjectNotFoundError: For when an object cannot be found
//   - VersionIsInvalidError: For when a version marker is inconsistent
//
// And the synchronization taxonomy:
//   - NetworkError: transient remote failure, absorbed and retried
//   - InvalidTransitionError: lifecycle rejection, surfaced to the caller
//   - ConflictError: the remote already moved the order elsewhere
//   - StorageError: local persistence failure, logged while memory state continues
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Callers classify errors with errors.Is against the sentinels or errors.As
// against the struct types.
package errs
