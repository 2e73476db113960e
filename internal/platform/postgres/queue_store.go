package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

const queueTaskColumns = `id, entity_type, entity_id, user_id, image_prompt, aspect_ratio,
	video_prompt, video_prompt_part1, video_prompt_part2, video_prompt_part3, video_mode,
	status, attempts, kie_image_task_id, kie_video_task_id, image_url, video_url,
	error_message, created_at, updated_at, completed_at`

const defaultListLimit = 50

// PostgresQueueStore implements store.QueueStore over database/sql.
type PostgresQueueStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Compile-time check to ensure PostgresQueueStore implements store.QueueStore
var _ store.QueueStore = (*PostgresQueueStore)(nil)

// NewPostgresQueueStore creates a new queue store.
// It accepts a database connection or transaction and a logger.
func NewPostgresQueueStore(db store.DBTX, logger *slog.Logger) *PostgresQueueStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQueueStore{
		db:     db,
		logger: logger.With(slog.String("component", "queue_store")),
	}
}

// WithTx returns a new store instance that uses the provided transaction.
func (s *PostgresQueueStore) WithTx(tx *sql.Tx) store.QueueStore {
	return &PostgresQueueStore{db: tx, logger: s.logger}
}

func now() time.Time {
	return time.Now().UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueTask(row rowScanner) (*domain.QueueTask, error) {
	var (
		t                          domain.QueueTask
		entityType, mode, status   string
		videoPrompt, p1, p2, p3    sql.NullString
		imageTaskID, videoTaskID   sql.NullString
		imageURL, videoURL, errMsg sql.NullString
		completedAt                sql.NullTime
	)

	err := row.Scan(
		&t.ID, &entityType, &t.EntityID, &t.UserID, &t.ImagePrompt, &t.AspectRatio,
		&videoPrompt, &p1, &p2, &p3, &mode,
		&status, &t.Attempts, &imageTaskID, &videoTaskID, &imageURL, &videoURL,
		&errMsg, &t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.EntityType = domain.EntityType(entityType)
	t.VideoMode = domain.VideoMode(mode)
	t.Status = domain.TaskStatus(status)
	t.VideoPrompt = videoPrompt.String
	t.VideoPromptParts = [3]string{p1.String, p2.String, p3.String}
	t.ImageTaskID = imageTaskID.String
	t.VideoTaskID = videoTaskID.String
	t.ImageURL = imageURL.String
	t.VideoURL = videoURL.String
	t.ErrorMessage = errMsg.String
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if completedAt.Valid {
		c := completedAt.Time.UTC()
		t.CompletedAt = &c
	}
	return &t, nil
}

// Create implements store.QueueStore.
func (s *PostgresQueueStore) Create(ctx context.Context, task *domain.QueueTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `INSERT INTO queue_tasks (` + queueTaskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: task.CompletedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		task.ID, string(task.EntityType), task.EntityID, task.UserID, task.ImagePrompt, task.AspectRatio,
		nullString(task.VideoPrompt),
		nullString(task.VideoPromptParts[0]), nullString(task.VideoPromptParts[1]), nullString(task.VideoPromptParts[2]),
		string(task.VideoMode), string(task.Status), task.Attempts,
		nullString(task.ImageTaskID), nullString(task.VideoTaskID),
		nullString(task.ImageURL), nullString(task.VideoURL), nullString(task.ErrorMessage),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(), completedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("queue task already exists for entity",
				slog.String("entity_type", string(task.EntityType)),
				slog.String("entity_id", task.EntityID.String()))
			return store.ErrQueueTaskExists
		}
		log.Error("failed to create queue task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create queue task: %w", MapError(err))
	}

	log.Debug("queue task created",
		slog.String("task_id", task.ID.String()),
		slog.String("video_mode", string(task.VideoMode)))
	return nil
}

// GetByID implements store.QueueStore.
func (s *PostgresQueueStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+queueTaskColumns+` FROM queue_tasks WHERE id = $1`, id)

	task, err := scanQueueTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQueueTaskNotFound
		}
		return nil, fmt.Errorf("failed to get queue task: %w", MapError(err))
	}
	return task, nil
}

// GetByEntity implements store.QueueStore.
func (s *PostgresQueueStore) GetByEntity(
	ctx context.Context,
	entityType domain.EntityType,
	entityID uuid.UUID,
) (*domain.QueueTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+queueTaskColumns+` FROM queue_tasks WHERE entity_type = $1 AND entity_id = $2`,
		string(entityType), entityID)

	task, err := scanQueueTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQueueTaskNotFound
		}
		return nil, fmt.Errorf("failed to get queue task by entity: %w", MapError(err))
	}
	return task, nil
}

// ClaimNext implements store.QueueStore.
//
// The claim is a select followed by an update conditioned on the row still
// being pending. Losing the race yields ErrClaimConflict.
func (s *PostgresQueueStore) ClaimNext(ctx context.Context, maxAttempts int) (*domain.QueueTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM queue_tasks
		WHERE status = $1 AND attempts < $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1`,
		string(domain.TaskStatusPending), maxAttempts,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoPendingTask
		}
		return nil, fmt.Errorf("failed to select pending task: %w", MapError(err))
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE queue_tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(domain.TaskStatusProcessing), now(), id, string(domain.TaskStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		log.Debug("claim lost to another worker", slog.String("task_id", id.String()))
		return nil, store.ErrClaimConflict
	}

	return s.GetByID(ctx, id)
}

// ResetStuck implements store.QueueStore.
func (s *PostgresQueueStore) ResetStuck(
	ctx context.Context,
	olderThan time.Duration,
	maxAttempts int,
) ([]*domain.QueueTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ts := now()
	rows, err := s.db.QueryContext(ctx, `
		UPDATE queue_tasks
		SET attempts = CASE WHEN attempts < $1 THEN attempts + 1 ELSE attempts END,
			status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'pending' END,
			error_message = $2,
			updated_at = $3
		WHERE status = $4 AND updated_at < $5
		RETURNING `+queueTaskColumns,
		maxAttempts, store.StuckTaskMessage(olderThan), ts,
		string(domain.TaskStatusProcessing), ts.Add(-olderThan),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reset stuck tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var reset []*domain.QueueTask
	for rows.Next() {
		task, err := scanQueueTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reset task: %w", MapError(err))
		}
		reset = append(reset, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to reset stuck tasks: %w", MapError(err))
	}

	if len(reset) > 0 {
		log.Warn("reclaimed stuck processing tasks",
			slog.Int("count", len(reset)),
			slog.Duration("older_than", olderThan))
	}
	return reset, nil
}

func (s *PostgresQueueStore) setColumn(ctx context.Context, id uuid.UUID, column, value string) error {
	// column is always a constant chosen by the caller below.
	result, err := s.db.ExecContext(ctx,
		`UPDATE queue_tasks SET `+column+` = $1, updated_at = $2 WHERE id = $3`,
		nullString(value), now(), id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, MapError(err))
	}
	return CheckRowsAffected(result, store.ErrQueueTaskNotFound)
}

// SaveImageTaskID implements store.QueueStore.
func (s *PostgresQueueStore) SaveImageTaskID(ctx context.Context, id uuid.UUID, providerTaskID string) error {
	return s.setColumn(ctx, id, "kie_image_task_id", providerTaskID)
}

// SaveVideoTaskID implements store.QueueStore.
func (s *PostgresQueueStore) SaveVideoTaskID(ctx context.Context, id uuid.UUID, providerTaskID string) error {
	return s.setColumn(ctx, id, "kie_video_task_id", providerTaskID)
}

// SaveImageURL implements store.QueueStore.
func (s *PostgresQueueStore) SaveImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	return s.setColumn(ctx, id, "image_url", imageURL)
}

// staleOrMissing distinguishes a missing row from one in the wrong state
// after a conditional update matched nothing.
func (s *PostgresQueueStore) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return store.ErrStaleTransition
}

// Complete implements store.QueueStore.
func (s *PostgresQueueStore) Complete(ctx context.Context, id uuid.UUID, res store.TaskResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ts := now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE queue_tasks
		SET status = $1,
			image_url = $2,
			video_url = $3,
			kie_image_task_id = COALESCE($4, kie_image_task_id),
			kie_video_task_id = COALESCE($5, kie_video_task_id),
			error_message = NULL,
			completed_at = $6,
			updated_at = $7
		WHERE id = $8 AND status IN ($9, $10)`,
		string(domain.TaskStatusCompleted),
		nullString(res.ImageURL), nullString(res.VideoURL),
		nullString(res.ImageTaskID), nullString(res.VideoTaskID),
		ts, ts, id,
		string(domain.TaskStatusPending), string(domain.TaskStatusProcessing),
	)
	if err != nil {
		log.Error("failed to complete queue task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to complete queue task: %w", MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

// RecordFailure implements store.QueueStore.
func (s *PostgresQueueStore) RecordFailure(
	ctx context.Context,
	id uuid.UUID,
	message string,
	maxAttempts int,
) (*domain.QueueTask, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE queue_tasks
		SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= $1 THEN 'failed' ELSE 'pending' END,
			error_message = $2,
			updated_at = $3
		WHERE id = $4 AND status = $5`,
		maxAttempts, nullString(message), now(), id, string(domain.TaskStatusProcessing),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record task failure: %w", MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, s.staleOrMissing(ctx, id)
	}
	return s.GetByID(ctx, id)
}

// HasPending implements store.QueueStore.
func (s *PostgresQueueStore) HasPending(ctx context.Context, maxAttempts int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_tasks WHERE status = $1 AND attempts < $2`,
		string(domain.TaskStatusPending), maxAttempts,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count pending tasks: %w", MapError(err))
	}
	return count > 0, nil
}

// CountByStatus implements store.QueueStore.
func (s *PostgresQueueStore) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM queue_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := map[domain.TaskStatus]int{
		domain.TaskStatusPending:    0,
		domain.TaskStatusProcessing: 0,
		domain.TaskStatusCompleted:  0,
		domain.TaskStatusFailed:     0,
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.TaskStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

// List implements store.QueueStore.
func (s *PostgresQueueStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.QueueTask, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, string(filter.EntityType))
		conds = append(conds, fmt.Sprintf("entity_type = $%d", len(args)))
	}

	query := `SELECT ` + queueTaskColumns + ` FROM queue_tasks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.QueueTask, 0)
	for rows.Next() {
		task, err := scanQueueTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue tasks: %w", err)
	}
	return tasks, nil
}

// RetryFailed implements store.QueueStore.
func (s *PostgresQueueStore) RetryFailed(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE queue_tasks
		SET status = $1, attempts = 0, error_message = NULL, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(domain.TaskStatusPending), now(), id, string(domain.TaskStatusFailed),
	)
	if err != nil {
		return fmt.Errorf("failed to retry task: %w", MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.staleOrMissing(ctx, id)
	}

	log.Info("failed task requeued", slog.String("task_id", id.String()))
	return nil
}
