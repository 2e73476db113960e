package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

const entityColumns = `id, user_id, title, content, media_status, image_url, video_url, created_at, updated_at`

// PostgresEntityStore implements store.EntityStore for the dreams and
// manifestations tables.
type PostgresEntityStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Compile-time check to ensure PostgresEntityStore implements store.EntityStore
var _ store.EntityStore = (*PostgresEntityStore)(nil)

// NewPostgresEntityStore creates a new entity store.
func NewPostgresEntityStore(db store.DBTX, logger *slog.Logger) *PostgresEntityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEntityStore{
		db:     db,
		logger: logger.With(slog.String("component", "entity_store")),
	}
}

// WithTx returns a new store instance that uses the provided transaction.
func (s *PostgresEntityStore) WithTx(tx *sql.Tx) store.EntityStore {
	return &PostgresEntityStore{db: tx, logger: s.logger}
}

// table resolves the table for an entity type. Only known types map to a
// table, so the result is safe to interpolate.
func table(entityType domain.EntityType) (string, error) {
	if !entityType.Valid() {
		return "", fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidEntityType)
	}
	return entityType.Plural(), nil
}

func scanEntity(row rowScanner, entityType domain.EntityType) (*domain.Entity, error) {
	var (
		e                  domain.Entity
		status             string
		imageURL, videoURL sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &status,
		&imageURL, &videoURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Type = entityType
	e.MediaStatus = domain.MediaStatus(status)
	e.ImageURL = imageURL.String
	e.VideoURL = videoURL.String
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

// Create implements store.EntityStore.
func (s *PostgresEntityStore) Create(ctx context.Context, entity *domain.Entity) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	tbl, err := table(entity.Type)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+tbl+` (`+entityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entity.ID, entity.UserID, entity.Title, entity.Content, string(entity.MediaStatus),
		nullString(entity.ImageURL), nullString(entity.VideoURL),
		entity.CreatedAt.UTC(), entity.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create entity",
			slog.String("entity_type", string(entity.Type)),
			slog.String("entity_id", entity.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create %s: %w", entity.Type, MapError(err))
	}
	return nil
}

// GetByID implements store.EntityStore.
func (s *PostgresEntityStore) GetByID(ctx context.Context, entityType domain.EntityType, id uuid.UUID) (*domain.Entity, error) {
	tbl, err := table(entityType)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM `+tbl+` WHERE id = $1`, id)
	entity, err := scanEntity(row, entityType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", entityType, MapError(err))
	}
	return entity, nil
}

// ListByUser implements store.EntityStore.
func (s *PostgresEntityStore) ListByUser(
	ctx context.Context,
	entityType domain.EntityType,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Entity, error) {
	tbl, err := table(entityType)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM `+tbl+`
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", tbl, MapError(err))
	}
	defer func() { _ = rows.Close() }()

	entities := make([]*domain.Entity, 0)
	for rows.Next() {
		entity, err := scanEntity(rows, entityType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entityType, err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", tbl, err)
	}
	return entities, nil
}

// UpdateMediaStatus implements store.EntityStore.
func (s *PostgresEntityStore) UpdateMediaStatus(
	ctx context.Context,
	entityType domain.EntityType,
	id uuid.UUID,
	status domain.MediaStatus,
) error {
	if !status.Valid() || status == domain.MediaStatusCompleted {
		// Completion goes through CompleteMedia so URLs are always set.
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidMediaStatus)
	}
	tbl, err := table(entityType)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE `+tbl+` SET media_status = $1, updated_at = $2 WHERE id = $3 AND media_status <> $4`,
		string(status), now(), id, string(domain.MediaStatusCompleted))
	if err != nil {
		return fmt.Errorf("failed to update %s media status: %w", entityType, MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetByID(ctx, entityType, id); err != nil {
			return err
		}
		return store.ErrStaleTransition
	}
	return nil
}

// CompleteMedia implements store.EntityStore.
func (s *PostgresEntityStore) CompleteMedia(
	ctx context.Context,
	entityType domain.EntityType,
	id uuid.UUID,
	imageURL, videoURL string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if imageURL == "" || videoURL == "" {
		return domain.ErrIncompleteMedia
	}
	tbl, err := table(entityType)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE `+tbl+` SET image_url = $1, video_url = $2, media_status = $3, updated_at = $4 WHERE id = $5`,
		imageURL, videoURL, string(domain.MediaStatusCompleted), now(), id)
	if err != nil {
		log.Error("failed to complete entity media",
			slog.String("entity_type", string(entityType)),
			slog.String("entity_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to complete %s media: %w", entityType, MapError(err))
	}
	return CheckRowsAffected(result, store.ErrEntityNotFound)
}
