package service

import (
	"errors"
	"fmt"

	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is; the API layer maps them to status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrEntityNotFound indicates the dream or manifestation does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrTaskNotFound indicates the queue task does not exist.
	ErrTaskNotFound = errors.New("queue task not found")

	// ErrTaskNotFailed is returned when a retry is requested for a task that
	// is not in the failed state.
	ErrTaskNotFailed = errors.New("queue task is not failed")
)

// ServiceError wraps unexpected errors from a service operation with context.
type ServiceError struct {
	// Service is the service that failed (e.g., "entity", "queue")
	Service string
	// Op is the operation that failed (e.g., "create_entity", "retry_task")
	Op string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError maps store sentinels to service sentinels and wraps
// everything else. Domain validation errors pass through unchanged.
func newServiceError(service, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotOwned),
		errors.Is(err, ErrEntityNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrTaskNotFailed):
		return err
	case errors.Is(err, store.ErrEntityNotFound):
		return ErrEntityNotFound
	case errors.Is(err, store.ErrQueueTaskNotFound):
		return ErrTaskNotFound
	}
	return &ServiceError{Service: service, Op: op, Err: err}
}
