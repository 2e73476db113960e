package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

// TxFinalizer writes the entity completion and the queue task completion in
// one transaction. If either write fails neither is visible and the task is
// retried.
type TxFinalizer struct {
	db       *sql.DB
	entities store.EntityStore
	queue    store.QueueStore
}

var _ task.Finalizer = (*TxFinalizer)(nil)

// NewTxFinalizer creates a TxFinalizer.
func NewTxFinalizer(db *sql.DB, entities store.EntityStore, queue store.QueueStore) *TxFinalizer {
	return &TxFinalizer{db: db, entities: entities, queue: queue}
}

// Finalize implements task.Finalizer.
func (f *TxFinalizer) Finalize(ctx context.Context, qt *domain.QueueTask, result store.TaskResult) error {
	return store.RunInTransaction(ctx, f.db, func(ctx context.Context, tx *sql.Tx) error {
		err := f.entities.WithTx(tx).CompleteMedia(ctx, qt.EntityType, qt.EntityID, result.ImageURL, result.VideoURL)
		if err != nil {
			return fmt.Errorf("failed to complete %s: %w", qt.EntityType, err)
		}
		if err := f.queue.WithTx(tx).Complete(ctx, qt.ID, result); err != nil {
			return fmt.Errorf("failed to complete queue task: %w", err)
		}
		return nil
	})
}
