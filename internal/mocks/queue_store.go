package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

// MockQueueStore implements store.QueueStore in memory for testing. Status
// transitions are compare-and-set under a mutex, mirroring the SQL stores.
type MockQueueStore struct {
	// Function fields for customizable behavior
	ClaimNextFn     func(ctx context.Context, maxAttempts int) (*domain.QueueTask, error)
	CompleteFn      func(ctx context.Context, id uuid.UUID, result store.TaskResult) error
	RecordFailureFn func(ctx context.Context, id uuid.UUID, message string, maxAttempts int) (*domain.QueueTask, error)

	// Default errors
	CreateError    error
	ResetStuckErr  error
	HasPendingErr  error
	SaveColumnsErr error

	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.QueueTask

	// BeforeClaimUpdate, if set, runs between selecting a candidate and
	// updating it, which lets tests widen the claim race window.
	BeforeClaimUpdate func()
}

var _ store.QueueStore = (*MockQueueStore)(nil)

// NewMockQueueStore creates an empty in-memory queue.
func NewMockQueueStore() *MockQueueStore {
	return &MockQueueStore{tasks: make(map[uuid.UUID]*domain.QueueTask)}
}

func clone(t *domain.QueueTask) *domain.QueueTask {
	c := *t
	return &c
}

// Create implements store.QueueStore.
func (m *MockQueueStore) Create(_ context.Context, task *domain.QueueTask) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.EntityType == task.EntityType && t.EntityID == task.EntityID {
			return store.ErrQueueTaskExists
		}
	}
	m.tasks[task.ID] = clone(task)
	return nil
}

// GetByID implements store.QueueStore.
func (m *MockQueueStore) GetByID(_ context.Context, id uuid.UUID) (*domain.QueueTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrQueueTaskNotFound
	}
	return clone(t), nil
}

// GetByEntity implements store.QueueStore.
func (m *MockQueueStore) GetByEntity(_ context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.QueueTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.EntityType == entityType && t.EntityID == entityID {
			return clone(t), nil
		}
	}
	return nil, store.ErrQueueTaskNotFound
}

// ClaimNext implements store.QueueStore.
func (m *MockQueueStore) ClaimNext(ctx context.Context, maxAttempts int) (*domain.QueueTask, error) {
	if m.ClaimNextFn != nil {
		return m.ClaimNextFn(ctx, maxAttempts)
	}

	m.mu.Lock()
	var candidate *domain.QueueTask
	for _, t := range m.sortedLocked() {
		if t.Status == domain.TaskStatusPending && t.Attempts < maxAttempts {
			candidate = t
			break
		}
	}
	if candidate == nil {
		m.mu.Unlock()
		return nil, store.ErrNoPendingTask
	}
	id := candidate.ID
	m.mu.Unlock()

	if m.BeforeClaimUpdate != nil {
		m.BeforeClaimUpdate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	if t.Status != domain.TaskStatusPending {
		return nil, store.ErrClaimConflict
	}
	t.Status = domain.TaskStatusProcessing
	t.UpdatedAt = time.Now().UTC()
	return clone(t), nil
}

// ResetStuck implements store.QueueStore.
func (m *MockQueueStore) ResetStuck(_ context.Context, olderThan time.Duration, maxAttempts int) ([]*domain.QueueTask, error) {
	if m.ResetStuckErr != nil {
		return nil, m.ResetStuckErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var reset []*domain.QueueTask
	for _, t := range m.sortedLocked() {
		if t.Status != domain.TaskStatusProcessing || !t.UpdatedAt.Before(cutoff) {
			continue
		}
		if t.Attempts < maxAttempts {
			t.Attempts++
		}
		t.Status = domain.TaskStatusPending
		if t.Attempts >= maxAttempts {
			t.Status = domain.TaskStatusFailed
		}
		t.ErrorMessage = store.StuckTaskMessage(olderThan)
		t.UpdatedAt = time.Now().UTC()
		reset = append(reset, clone(t))
	}
	return reset, nil
}

func (m *MockQueueStore) update(id uuid.UUID, fn func(t *domain.QueueTask)) error {
	if m.SaveColumnsErr != nil {
		return m.SaveColumnsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrQueueTaskNotFound
	}
	fn(t)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SaveImageTaskID implements store.QueueStore.
func (m *MockQueueStore) SaveImageTaskID(_ context.Context, id uuid.UUID, providerTaskID string) error {
	return m.update(id, func(t *domain.QueueTask) { t.ImageTaskID = providerTaskID })
}

// SaveVideoTaskID implements store.QueueStore.
func (m *MockQueueStore) SaveVideoTaskID(_ context.Context, id uuid.UUID, providerTaskID string) error {
	return m.update(id, func(t *domain.QueueTask) { t.VideoTaskID = providerTaskID })
}

// SaveImageURL implements store.QueueStore.
func (m *MockQueueStore) SaveImageURL(_ context.Context, id uuid.UUID, imageURL string) error {
	return m.update(id, func(t *domain.QueueTask) { t.ImageURL = imageURL })
}

// Complete implements store.QueueStore.
func (m *MockQueueStore) Complete(ctx context.Context, id uuid.UUID, result store.TaskResult) error {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, id, result)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrQueueTaskNotFound
	}
	if t.Status != domain.TaskStatusPending && t.Status != domain.TaskStatusProcessing {
		return store.ErrStaleTransition
	}
	now := time.Now().UTC()
	t.Status = domain.TaskStatusCompleted
	t.ImageURL = result.ImageURL
	t.VideoURL = result.VideoURL
	if result.ImageTaskID != "" {
		t.ImageTaskID = result.ImageTaskID
	}
	if result.VideoTaskID != "" {
		t.VideoTaskID = result.VideoTaskID
	}
	t.ErrorMessage = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// RecordFailure implements store.QueueStore.
func (m *MockQueueStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	message string,
	maxAttempts int,
) (*domain.QueueTask, error) {
	if m.RecordFailureFn != nil {
		return m.RecordFailureFn(ctx, id, message, maxAttempts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrQueueTaskNotFound
	}
	if t.Status != domain.TaskStatusProcessing {
		return nil, store.ErrStaleTransition
	}
	t.Attempts++
	t.ErrorMessage = message
	t.Status = domain.TaskStatusPending
	if t.Attempts >= maxAttempts {
		t.Status = domain.TaskStatusFailed
	}
	t.UpdatedAt = time.Now().UTC()
	return clone(t), nil
}

// HasPending implements store.QueueStore.
func (m *MockQueueStore) HasPending(_ context.Context, maxAttempts int) (bool, error) {
	if m.HasPendingErr != nil {
		return false, m.HasPendingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.Status == domain.TaskStatusPending && t.Attempts < maxAttempts {
			return true, nil
		}
	}
	return false, nil
}

// CountByStatus implements store.QueueStore.
func (m *MockQueueStore) CountByStatus(context.Context) (map[domain.TaskStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.TaskStatus]int)
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

// List implements store.QueueStore.
func (m *MockQueueStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.QueueTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := m.sortedLocked()
	var out []*domain.QueueTask
	for i := len(sorted) - 1; i >= 0; i-- {
		t := sorted[i]
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.EntityType != "" && t.EntityType != filter.EntityType {
			continue
		}
		out = append(out, clone(t))
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// RetryFailed implements store.QueueStore.
func (m *MockQueueStore) RetryFailed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrQueueTaskNotFound
	}
	if t.Status != domain.TaskStatusFailed {
		return store.ErrStaleTransition
	}
	t.Status = domain.TaskStatusPending
	t.Attempts = 0
	t.ErrorMessage = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// WithTx implements store.QueueStore. For mock purposes the same store is
// returned.
func (m *MockQueueStore) WithTx(*sql.Tx) store.QueueStore {
	return m
}

// sortedLocked returns tasks oldest first. Callers hold mu.
func (m *MockQueueStore) sortedLocked() []*domain.QueueTask {
	out := make([]*domain.QueueTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
