package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

// TestifyMockEntityStore is a mock of store.EntityStore interface for use with testify/mock
type TestifyMockEntityStore struct {
	mock.Mock
}

var _ store.EntityStore = (*TestifyMockEntityStore)(nil)

// Create is a mock implementation of store.EntityStore.Create
func (m *TestifyMockEntityStore) Create(ctx context.Context, entity *domain.Entity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

// GetByID is a mock implementation of store.EntityStore.GetByID
func (m *TestifyMockEntityStore) GetByID(
	ctx context.Context,
	entityType domain.EntityType,
	id uuid.UUID,
) (*domain.Entity, error) {
	args := m.Called(ctx, entityType, id)
	if e, ok := args.Get(0).(*domain.Entity); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByUser is a mock implementation of store.EntityStore.ListByUser
func (m *TestifyMockEntityStore) ListByUser(
	ctx context.Context,
	entityType domain.EntityType,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Entity, error) {
	args := m.Called(ctx, entityType, userID, limit, offset)
	if list, ok := args.Get(0).([]*domain.Entity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateMediaStatus is a mock implementation of store.EntityStore.UpdateMediaStatus
func (m *TestifyMockEntityStore) UpdateMediaStatus(
	ctx context.Context,
	entityType domain.EntityType,
	id uuid.UUID,
	status domain.MediaStatus,
) error {
	args := m.Called(ctx, entityType, id, status)
	return args.Error(0)
}

// CompleteMedia is a mock implementation of store.EntityStore.CompleteMedia
func (m *TestifyMockEntityStore) CompleteMedia(
	ctx context.Context,
	entityType domain.EntityType,
	id uuid.UUID,
	imageURL, videoURL string,
) error {
	args := m.Called(ctx, entityType, id, imageURL, videoURL)
	return args.Error(0)
}

// WithTx is a mock implementation of store.EntityStore.WithTx
func (m *TestifyMockEntityStore) WithTx(tx *sql.Tx) store.EntityStore {
	return m
}
