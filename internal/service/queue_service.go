package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

// QueueStats summarises the queue by task status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Total returns the number of tasks in the queue.
func (s QueueStats) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed
}

// QueueService provides operator actions on the media queue.
type QueueService interface {
	// Stats returns task counts per status.
	Stats(ctx context.Context) (QueueStats, error)

	// ListTasks returns tasks matching filter, newest first.
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.QueueTask, error)

	// RetryFailed returns a failed task to pending with attempts reset and
	// marks its entity pending again.
	RetryFailed(ctx context.Context, id uuid.UUID) (*domain.QueueTask, error)
}

type queueServiceImpl struct {
	db       *sql.DB
	entities store.EntityStore
	queue    store.QueueStore
	notifier task.Notifier
	logger   *slog.Logger
}

// NewQueueService creates a QueueService. notifier may be nil.
func NewQueueService(
	db *sql.DB,
	entities store.EntityStore,
	queue store.QueueStore,
	notifier task.Notifier,
	logger *slog.Logger,
) (QueueService, error) {
	if db == nil || entities == nil || queue == nil {
		return nil, &ServiceError{Service: "queue", Op: "create_service", Err: errors.New("db and stores are required")}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &queueServiceImpl{
		db:       db,
		entities: entities,
		queue:    queue,
		notifier: notifier,
		logger:   logger.With("component", "queue_service"),
	}, nil
}

// Stats implements QueueService.
func (s *queueServiceImpl) Stats(ctx context.Context) (QueueStats, error) {
	counts, err := s.queue.CountByStatus(ctx)
	if err != nil {
		return QueueStats{}, newServiceError("queue", "stats", err)
	}
	return QueueStats{
		Pending:    counts[domain.TaskStatusPending],
		Processing: counts[domain.TaskStatusProcessing],
		Completed:  counts[domain.TaskStatusCompleted],
		Failed:     counts[domain.TaskStatusFailed],
	}, nil
}

// ListTasks implements QueueService.
func (s *queueServiceImpl) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.QueueTask, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidTaskStatus
	}
	if filter.EntityType != "" && !filter.EntityType.Valid() {
		return nil, domain.ErrInvalidEntityType
	}
	tasks, err := s.queue.List(ctx, filter)
	if err != nil {
		return nil, newServiceError("queue", "list_tasks", err)
	}
	return tasks, nil
}

// RetryFailed implements QueueService.
func (s *queueServiceImpl) RetryFailed(ctx context.Context, id uuid.UUID) (*domain.QueueTask, error) {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		queue := s.queue.WithTx(tx)
		qt, err := queue.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := queue.RetryFailed(ctx, id); err != nil {
			if errors.Is(err, store.ErrStaleTransition) {
				return ErrTaskNotFailed
			}
			return err
		}
		return s.entities.WithTx(tx).UpdateMediaStatus(ctx, qt.EntityType, qt.EntityID, domain.MediaStatusPending)
	})
	if err != nil {
		return nil, newServiceError("queue", "retry_task", err)
	}

	qt, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError("queue", "retry_task", err)
	}
	s.logger.Info("failed task returned to queue", "task_id", id, "entity_id", qt.EntityID)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx); err != nil {
			s.logger.Warn("failed to wake workers", "error", err, "task_id", id)
		}
	}
	return qt, nil
}
