package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
)

// EntityStore persists dreams and manifestations. Both live in tables of the
// same shape, selected by entity type.
type EntityStore interface {
	// Create saves a new entity.
	Create(ctx context.Context, entity *domain.Entity) error

	// GetByID retrieves an entity. Returns ErrEntityNotFound if it does not exist.
	GetByID(ctx context.Context, entityType domain.EntityType, id uuid.UUID) (*domain.Entity, error)

	// ListByUser returns a user's entities, newest first.
	ListByUser(ctx context.Context, entityType domain.EntityType, userID uuid.UUID, limit, offset int) ([]*domain.Entity, error)

	// UpdateMediaStatus sets media_status without touching the URLs.
	// A completed entity is never moved back to another status.
	UpdateMediaStatus(ctx context.Context, entityType domain.EntityType, id uuid.UUID, status domain.MediaStatus) error

	// CompleteMedia writes both URLs and marks the entity completed.
	// Returns domain.ErrIncompleteMedia if either URL is empty.
	CompleteMedia(ctx context.Context, entityType domain.EntityType, id uuid.UUID, imageURL, videoURL string) error

	// WithTx returns a new EntityStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) EntityStore
}
