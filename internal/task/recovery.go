package task

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/telemetry"
)

// Recovery outcomes, used as metric labels.
const (
	recoveryNoTask     = "no_task"
	recoveryFailed     = "skipped_failed"
	recoveryNotStarted = "not_started"
	recoveryCopied     = "copied"
	recoveryPending    = "pending"
	recoveryRecovered  = "recovered"
	recoveryError      = "error"
)

// DefaultRecoveryConcurrency bounds provider checks made for one listing.
const DefaultRecoveryConcurrency = 4

// RecoveryScanner catches up in-flight entities whose provider work has
// finished without a worker to notice, typically after a worker died
// mid-poll. It only checks; it never creates provider tasks or waits.
type RecoveryScanner struct {
	queue       store.QueueStore
	entities    store.EntityStore
	reconciler  *Reconciler
	concurrency int
	logger      *slog.Logger
}

// NewRecoveryScanner creates a RecoveryScanner.
func NewRecoveryScanner(
	queue store.QueueStore,
	entities store.EntityStore,
	reconciler *Reconciler,
	concurrency int,
	logger *slog.Logger,
) *RecoveryScanner {
	if concurrency <= 0 {
		concurrency = DefaultRecoveryConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryScanner{
		queue:       queue,
		entities:    entities,
		reconciler:  reconciler,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "recovery_scanner")),
	}
}

// Scan examines every pending or processing entity in list and updates the
// ones that could be completed in place. Errors are logged per entity and
// never fail the scan.
func (s *RecoveryScanner) Scan(ctx context.Context, list []*domain.Entity) []*domain.Entity {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, e := range list {
		if e == nil || !e.MediaStatus.InFlight() {
			continue
		}
		g.Go(func() error {
			outcome := s.scanOne(gctx, e)
			telemetry.RecoveryReconciled.WithLabelValues(outcome).Inc()
			return nil
		})
	}
	_ = g.Wait()
	return list
}

func (s *RecoveryScanner) scanOne(ctx context.Context, e *domain.Entity) string {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("entity_id", e.ID.String()),
		slog.String("entity_type", string(e.Type)))

	task, err := s.queue.GetByEntity(ctx, e.Type, e.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return recoveryNoTask
		}
		log.Warn("failed to load queue task", slog.String("error", err.Error()))
		return recoveryError
	}

	switch {
	case task.Status == domain.TaskStatusFailed:
		return recoveryFailed
	case task.Status == domain.TaskStatusCompleted:
		return s.copyResult(ctx, log, e, task)
	case task.ImageTaskID == "" && task.ImageURL == "":
		return recoveryNotStarted
	}

	result, err := s.reconciler.Reconcile(logger.WithLogger(ctx, log), task, ModeCheckOnly)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return recoveryPending
		}
		log.Warn("recovery check failed", slog.String("error", err.Error()))
		return recoveryError
	}

	if err := e.CompleteMedia(result.ImageURL, result.VideoURL); err != nil {
		log.Warn("recovered task has incomplete media", slog.String("error", err.Error()))
		return recoveryError
	}
	log.Info("recovered entity media")
	return recoveryRecovered
}

// copyResult repairs an entity whose task completed but whose own row was
// never updated.
func (s *RecoveryScanner) copyResult(ctx context.Context, log *slog.Logger, e *domain.Entity, task *domain.QueueTask) string {
	if err := s.entities.CompleteMedia(ctx, e.Type, e.ID, task.ImageURL, task.VideoURL); err != nil {
		log.Warn("failed to copy completed media to entity", slog.String("error", err.Error()))
		return recoveryError
	}
	if err := e.CompleteMedia(task.ImageURL, task.VideoURL); err != nil {
		return recoveryError
	}
	log.Info("copied completed media to entity")
	return recoveryCopied
}
