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

// Default and maximum page sizes for entity listings.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Scanner reconciles in-flight entities against their queue tasks.
type Scanner interface {
	Scan(ctx context.Context, list []*domain.Entity) []*domain.Entity
}

// CreateEntityParams describes a new dream or manifestation and the prompts
// its media is generated from.
type CreateEntityParams struct {
	Type    domain.EntityType
	UserID  uuid.UUID
	Title   string
	Content string
	Prompts domain.MediaPrompts
}

// EntityService provides dream and manifestation operations.
type EntityService interface {
	// CreateEntity saves the entity and its pending queue task atomically
	// and wakes the workers. It does not wait for generation.
	CreateEntity(ctx context.Context, params CreateEntityParams) (*domain.Entity, *domain.QueueTask, error)

	// ListEntities returns the user's entities, newest first, after
	// reconciling any that are still in flight.
	ListEntities(
		ctx context.Context,
		entityType domain.EntityType,
		userID uuid.UUID,
		limit, offset int,
	) ([]*domain.Entity, error)

	// GetEntity returns one entity owned by userID.
	GetEntity(ctx context.Context, entityType domain.EntityType, userID, id uuid.UUID) (*domain.Entity, error)
}

// EntityServiceConfig holds defaults applied to new entities.
type EntityServiceConfig struct {
	DefaultAspectRatio string
}

type entityServiceImpl struct {
	db       *sql.DB
	entities store.EntityStore
	queue    store.QueueStore
	scanner  Scanner
	notifier task.Notifier
	config   EntityServiceConfig
	logger   *slog.Logger
}

// NewEntityService creates an EntityService. scanner and notifier may be nil,
// in which case listings are returned as stored and creation wakes nobody.
func NewEntityService(
	db *sql.DB,
	entities store.EntityStore,
	queue store.QueueStore,
	scanner Scanner,
	notifier task.Notifier,
	config EntityServiceConfig,
	logger *slog.Logger,
) (EntityService, error) {
	if db == nil {
		return nil, &ServiceError{Service: "entity", Op: "create_service", Err: errors.New("db cannot be nil")}
	}
	if entities == nil {
		return nil, &ServiceError{Service: "entity", Op: "create_service", Err: errors.New("entities cannot be nil")}
	}
	if queue == nil {
		return nil, &ServiceError{Service: "entity", Op: "create_service", Err: errors.New("queue cannot be nil")}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &entityServiceImpl{
		db:       db,
		entities: entities,
		queue:    queue,
		scanner:  scanner,
		notifier: notifier,
		config:   config,
		logger:   logger.With("component", "entity_service"),
	}, nil
}

// CreateEntity implements EntityService.
func (s *entityServiceImpl) CreateEntity(
	ctx context.Context,
	params CreateEntityParams,
) (*domain.Entity, *domain.QueueTask, error) {
	entity, err := domain.NewEntity(params.Type, params.UserID, params.Title, params.Content)
	if err != nil {
		return nil, nil, err
	}

	prompts := params.Prompts
	if prompts.AspectRatio == "" {
		prompts.AspectRatio = s.config.DefaultAspectRatio
	}
	queueTask, err := domain.NewQueueTask(entity, prompts)
	if err != nil {
		return nil, nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.entities.WithTx(tx).Create(ctx, entity); err != nil {
			return err
		}
		return s.queue.WithTx(tx).Create(ctx, queueTask)
	})
	if err != nil {
		s.logger.Error("failed to create entity with queue task",
			"error", err,
			"entity_type", entity.Type,
			"user_id", entity.UserID)
		return nil, nil, newServiceError("entity", "create_entity", err)
	}

	s.logger.Info("entity created and queued",
		"entity_type", entity.Type,
		"entity_id", entity.ID,
		"task_id", queueTask.ID,
		"video_mode", queueTask.VideoMode)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx); err != nil {
			// The cron schedule still picks the task up.
			s.logger.Warn("failed to wake workers", "error", err, "task_id", queueTask.ID)
		}
	}
	return entity, queueTask, nil
}

// ListEntities implements EntityService.
func (s *entityServiceImpl) ListEntities(
	ctx context.Context,
	entityType domain.EntityType,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Entity, error) {
	if !entityType.Valid() {
		return nil, domain.ErrInvalidEntityType
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.entities.ListByUser(ctx, entityType, userID, limit, offset)
	if err != nil {
		return nil, newServiceError("entity", "list_entities", err)
	}
	if s.scanner != nil {
		list = s.scanner.Scan(ctx, list)
	}
	return list, nil
}

// GetEntity implements EntityService.
func (s *entityServiceImpl) GetEntity(
	ctx context.Context,
	entityType domain.EntityType,
	userID, id uuid.UUID,
) (*domain.Entity, error) {
	entity, err := s.entities.GetByID(ctx, entityType, id)
	if err != nil {
		return nil, newServiceError("entity", "get_entity", err)
	}
	if entity.UserID != userID {
		return nil, ErrNotOwned
	}
	return entity, nil
}
