package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrQueueTaskNotFound, ErrEntityNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second queue task for one entity).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrClaimConflict is returned when a conditional claim matched no row
	// because another worker claimed the task first. It is benign.
	ErrClaimConflict = errors.New("task already claimed")

	// ErrNoPendingTask is returned by a claim when nothing is eligible.
	ErrNoPendingTask = errors.New("no pending task")

	// ErrStaleTransition is returned when a status transition is rejected
	// because the row is no longer in the expected source state.
	ErrStaleTransition = errors.New("stale status transition")

	// Entity-specific "not found" errors

	// ErrQueueTaskNotFound indicates that the requested queue task does not exist.
	ErrQueueTaskNotFound = fmt.Errorf("%w: queue task", ErrNotFound)

	// ErrEntityNotFound indicates that the requested dream or manifestation does not exist.
	ErrEntityNotFound = fmt.Errorf("%w: entity", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrQueueTaskExists indicates that the entity already has a queue task.
	ErrQueueTaskExists = fmt.Errorf("%w: queue task", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "queue_task", "dream")
	Operation string // The operation that failed (e.g., "claim", "complete")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
