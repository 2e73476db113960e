package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
)

// TaskResult carries the final artefacts written when a task completes.
type TaskResult struct {
	ImageURL    string
	VideoURL    string
	ImageTaskID string
	VideoTaskID string
}

// TaskFilter narrows List results. Zero values mean "any".
type TaskFilter struct {
	Status     domain.TaskStatus
	EntityType domain.EntityType
	Limit      int
	Offset     int
}

// StuckTaskMessage is the error recorded on a task reclaimed by ResetStuck.
func StuckTaskMessage(olderThan time.Duration) string {
	return fmt.Sprintf("processing stalled for longer than %s", olderThan)
}

// QueueStore defines the interface for media queue persistence.
//
// Every status transition is a conditional update on the row's current
// status. A transition that matches no row reports ErrClaimConflict (claims)
// or ErrStaleTransition (everything else).
type QueueStore interface {
	// Create saves a new pending task.
	// Returns ErrQueueTaskExists if the entity already has a task.
	Create(ctx context.Context, task *domain.QueueTask) error

	// GetByID retrieves a task by its ID.
	// Returns ErrQueueTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueTask, error)

	// GetByEntity retrieves the task that belongs to an entity.
	// Returns ErrQueueTaskNotFound if the entity has none.
	GetByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.QueueTask, error)

	// ClaimNext moves the oldest pending task with attempts < maxAttempts to
	// processing and returns it. Returns ErrNoPendingTask when nothing is
	// eligible and ErrClaimConflict when another worker won the race.
	ClaimNext(ctx context.Context, maxAttempts int) (*domain.QueueTask, error)

	// ResetStuck reclaims processing tasks whose updated_at is older than
	// olderThan. Each reclaim consumes an attempt: the task returns to
	// pending, or moves to failed once attempts reach maxAttempts. Returns
	// the reclaimed tasks in their new state.
	ResetStuck(ctx context.Context, olderThan time.Duration, maxAttempts int) ([]*domain.QueueTask, error)

	// SaveImageTaskID persists the provider's image task handle.
	SaveImageTaskID(ctx context.Context, id uuid.UUID, providerTaskID string) error

	// SaveVideoTaskID persists the provider's video task handle.
	SaveVideoTaskID(ctx context.Context, id uuid.UUID, providerTaskID string) error

	// SaveImageURL persists the durable image URL so retries skip the image stage.
	SaveImageURL(ctx context.Context, id uuid.UUID, imageURL string) error

	// Complete marks a pending or processing task completed with its results.
	Complete(ctx context.Context, id uuid.UUID, result TaskResult) error

	// RecordFailure increments attempts on a processing task and moves it to
	// failed once attempts reach maxAttempts, otherwise back to pending.
	// Returns the task as stored after the update.
	RecordFailure(ctx context.Context, id uuid.UUID, message string, maxAttempts int) (*domain.QueueTask, error)

	// HasPending reports whether any task is eligible for a claim.
	HasPending(ctx context.Context, maxAttempts int) (bool, error)

	// CountByStatus returns the number of tasks per status.
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)

	// List returns tasks matching filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.QueueTask, error)

	// RetryFailed moves a failed task back to pending with attempts reset.
	// Returns ErrStaleTransition if the task is not failed.
	RetryFailed(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new QueueStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) QueueStore
}
