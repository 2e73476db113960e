package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/testdb"
)

func newQueueService(t *testing.T, s *stores, notifier *countingNotifier) service.QueueService {
	t.Helper()
	svc, err := service.NewQueueService(s.db, s.entities, s.queue, notifier, testdb.DiscardLogger())
	require.NoError(t, err)
	return svc
}

// fail drives a task to the failed state in a single attempt.
func fail(t *testing.T, s *stores, e *domain.Entity, qt *domain.QueueTask) {
	t.Helper()
	ctx := context.Background()
	_, err := s.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	got, err := s.queue.RecordFailure(ctx, qt.ID, "provider exploded", 1)
	require.NoError(t, err)
	require.Equal(t, domain.TaskStatusFailed, got.Status)
	require.NoError(t, s.entities.UpdateMediaStatus(ctx, e.Type, e.ID, domain.MediaStatusFailed))
}

func TestQueueService_RetryFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStores(t)
	notifier := &countingNotifier{}
	svc := newQueueService(t, s, notifier)

	entity, qt := s.seed(t, domain.EntityTypeDream)
	fail(t, s, entity, qt)

	retried, err := svc.RetryFailed(ctx, qt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, retried.Status)
	assert.Zero(t, retried.Attempts)
	assert.Empty(t, retried.ErrorMessage)
	assert.Equal(t, 1, notifier.Count())

	storedEntity, err := s.entities.GetByID(ctx, domain.EntityTypeDream, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaStatusPending, storedEntity.MediaStatus)
}

func TestQueueService_RetryRejectsNonFailedTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStores(t)
	notifier := &countingNotifier{}
	svc := newQueueService(t, s, notifier)

	_, qt := s.seed(t, domain.EntityTypeDream)

	_, err := svc.RetryFailed(ctx, qt.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotFailed)

	_, err = svc.RetryFailed(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.Zero(t, notifier.Count())
}

func TestQueueService_StatsAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStores(t)
	svc := newQueueService(t, s, &countingNotifier{})

	entity, qt := s.seed(t, domain.EntityTypeDream)
	fail(t, s, entity, qt)
	s.seed(t, domain.EntityTypeManifestation)
	s.seed(t, domain.EntityTypeManifestation)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.QueueStats{Pending: 2, Failed: 1}, stats)
	assert.Equal(t, 3, stats.Total())

	tasks, err := svc.ListTasks(ctx, store.TaskFilter{EntityType: domain.EntityTypeManifestation})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = svc.ListTasks(ctx, store.TaskFilter{Status: domain.TaskStatusFailed})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, qt.ID, tasks[0].ID)

	_, err = svc.ListTasks(ctx, store.TaskFilter{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)
}
