package task

import (
	"context"
	"fmt"

	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

// SequentialFinalizer completes the entity and then the queue task as two
// separate writes. It is used where the stores share no transaction; the
// transactional variant lives in the service package.
type SequentialFinalizer struct {
	entities store.EntityStore
	queue    store.QueueStore
}

var _ Finalizer = (*SequentialFinalizer)(nil)

// NewSequentialFinalizer creates a SequentialFinalizer.
func NewSequentialFinalizer(entities store.EntityStore, queue store.QueueStore) *SequentialFinalizer {
	return &SequentialFinalizer{entities: entities, queue: queue}
}

// Finalize implements Finalizer.
func (f *SequentialFinalizer) Finalize(ctx context.Context, task *domain.QueueTask, result store.TaskResult) error {
	if err := f.entities.CompleteMedia(ctx, task.EntityType, task.EntityID, result.ImageURL, result.VideoURL); err != nil {
		return fmt.Errorf("failed to complete %s: %w", task.EntityType, err)
	}
	if err := f.queue.Complete(ctx, task.ID, result); err != nil {
		return fmt.Errorf("failed to complete queue task: %w", err)
	}
	return nil
}
