package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/redact"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/telemetry"
)

// Outcome classifies a processing cycle.
type Outcome string

// Cycle outcomes
const (
	OutcomeIdle      Outcome = "idle"
	OutcomeConflict  Outcome = "conflict"
	OutcomeCompleted Outcome = "completed"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"
)

// Messages reported for cycles that did not process a task.
const (
	MessageQueueEmpty        = "No pending tasks in queue"
	MessageAlreadyProcessing = "Task already being processed"
)

// maxErrorMessageLen bounds the error text stored on a task.
const maxErrorMessageLen = 1000

// CycleResult describes what one processing cycle did.
type CycleResult struct {
	Outcome  Outcome
	TaskID   uuid.UUID
	ImageURL string
	VideoURL string
	Message  string
	Attempts int
}

// Processed reports whether the cycle claimed a task.
func (r CycleResult) Processed() bool {
	return r.TaskID != uuid.Nil
}

// OrchestratorConfig holds queue policy for processing cycles.
type OrchestratorConfig struct {
	// MaxAttempts is the number of failures after which a task is terminal.
	MaxAttempts int

	// StuckTaskTimeout is how long a task may stay processing without an
	// update before the sweep reclaims it.
	StuckTaskTimeout time.Duration
}

// DefaultOrchestratorConfig returns the production queue policy.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxAttempts:      domain.DefaultMaxAttempts,
		StuckTaskTimeout: 10 * time.Minute,
	}
}

// Orchestrator runs processing cycles against the queue.
type Orchestrator struct {
	queue      store.QueueStore
	entities   store.EntityStore
	reconciler *Reconciler
	notifier   Notifier
	config     OrchestratorConfig
	logger     *slog.Logger
}

var _ CycleRunner = (*Orchestrator)(nil)

// NewOrchestrator creates an Orchestrator. notifier may be nil.
func NewOrchestrator(
	queue store.QueueStore,
	entities store.EntityStore,
	reconciler *Reconciler,
	notifier Notifier,
	config OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultOrchestratorConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.StuckTaskTimeout <= 0 {
		config.StuckTaskTimeout = defaults.StuckTaskTimeout
	}
	return &Orchestrator{
		queue:      queue,
		entities:   entities,
		reconciler: reconciler,
		notifier:   notifier,
		config:     config,
		logger:     logger.With(slog.String("component", "orchestrator")),
	}
}

// RunCycle claims and processes at most one task.
//
// An empty queue and a lost claim race are not errors. When processing
// fails the failure is recorded against the task and returned together with
// a result describing whether the task will be retried.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	log := logger.FromContextOrDefault(ctx, o.logger)

	o.resetStuck(ctx, log)

	task, err := o.queue.ClaimNext(ctx, o.config.MaxAttempts)
	switch {
	case errors.Is(err, store.ErrNoPendingTask):
		telemetry.QueueCycles.WithLabelValues(string(OutcomeIdle)).Inc()
		return CycleResult{Outcome: OutcomeIdle, Message: MessageQueueEmpty}, nil
	case errors.Is(err, store.ErrClaimConflict):
		log.Debug("lost claim race")
		telemetry.QueueCycles.WithLabelValues(string(OutcomeConflict)).Inc()
		return CycleResult{Outcome: OutcomeConflict, Message: MessageAlreadyProcessing}, nil
	case err != nil:
		return CycleResult{}, fmt.Errorf("failed to claim task: %w", err)
	}

	log = log.With(
		slog.String("task_id", task.ID.String()),
		slog.String("entity_id", task.EntityID.String()),
		slog.String("entity_type", string(task.EntityType)),
	)
	ctx = logger.WithLogger(ctx, log)
	log.Info("task claimed",
		slog.Int("attempts", task.Attempts),
		slog.String("video_mode", string(task.VideoSpec().Mode())))

	o.setEntityStatus(ctx, task, domain.MediaStatusProcessing)

	telemetry.QueueTasksInFlight.Inc()
	result, runErr := o.reconciler.Reconcile(ctx, task, ModeBlocking)
	telemetry.QueueTasksInFlight.Dec()

	var out CycleResult
	if runErr != nil {
		out = o.recordFailure(ctx, task, runErr)
	} else {
		out = CycleResult{
			Outcome:  OutcomeCompleted,
			TaskID:   task.ID,
			ImageURL: result.ImageURL,
			VideoURL: result.VideoURL,
			Message:  "Task completed",
			Attempts: task.Attempts,
		}
	}

	telemetry.QueueCycles.WithLabelValues(string(out.Outcome)).Inc()
	telemetry.QueueCycleDurationSeconds.WithLabelValues(string(out.Outcome)).Observe(time.Since(start).Seconds())

	o.notifyIfPending(ctx)

	if runErr != nil {
		return out, runErr
	}
	return out, nil
}

func (o *Orchestrator) resetStuck(ctx context.Context, log *slog.Logger) {
	if _, err := o.SweepStuck(ctx, o.config.StuckTaskTimeout); err != nil {
		log.Error("failed to reset stuck tasks", slog.String("error", err.Error()))
	}
}

// SweepStuck reclaims tasks that have sat in processing for longer than
// olderThan, typically because their worker died. A reclaim consumes an
// attempt, so a task that keeps killing its worker ends up failed. The
// owning entities are marked failed. Returns the reclaimed tasks.
func (o *Orchestrator) SweepStuck(ctx context.Context, olderThan time.Duration) ([]*domain.QueueTask, error) {
	log := logger.FromContextOrDefault(ctx, o.logger)

	reset, err := o.queue.ResetStuck(ctx, olderThan, o.config.MaxAttempts)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, t := range reset {
		if t.Status == domain.TaskStatusFailed {
			failed++
			log.Error("stuck task failed permanently",
				slog.String("task_id", t.ID.String()),
				slog.Int("attempts", t.Attempts))
		}
		o.setEntityStatus(ctx, t, domain.MediaStatusFailed)
	}
	if len(reset) > 0 {
		telemetry.QueueStuckResets.Add(float64(len(reset)))
		log.Warn("reclaimed stuck tasks",
			slog.Int("count", len(reset)),
			slog.Int("failed", failed))
	}
	return reset, nil
}

// recordFailure runs on a context detached from cancellation so a shutdown
// mid-poll still books the attempt.
func (o *Orchestrator) recordFailure(ctx context.Context, task *domain.QueueTask, cause error) CycleResult {
	log := logger.FromContextOrDefault(ctx, o.logger)
	ctx = context.WithoutCancel(ctx)

	msg := redact.Error(cause)
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}

	out := CycleResult{
		Outcome:  OutcomeRetry,
		TaskID:   task.ID,
		ImageURL: task.ImageURL,
		Message:  msg,
		Attempts: task.Attempts + 1,
	}

	stored, err := o.queue.RecordFailure(ctx, task.ID, msg, o.config.MaxAttempts)
	if err != nil {
		log.Error("failed to record task failure",
			slog.String("error", err.Error()),
			slog.String("cause", msg))
	} else {
		out.Attempts = stored.Attempts
		if stored.Status == domain.TaskStatusFailed {
			out.Outcome = OutcomeFailed
		}
	}

	o.setEntityStatus(ctx, task, domain.MediaStatusFailed)

	if out.Outcome == OutcomeFailed {
		log.Error("task failed permanently",
			slog.Int("attempts", out.Attempts),
			slog.String("error", msg))
	} else {
		log.Warn("task failed, will retry",
			slog.Int("attempts", out.Attempts),
			slog.String("error", msg))
	}
	return out
}

func (o *Orchestrator) setEntityStatus(ctx context.Context, task *domain.QueueTask, status domain.MediaStatus) {
	if err := o.entities.UpdateMediaStatus(ctx, task.EntityType, task.EntityID, status); err != nil {
		logger.FromContextOrDefault(ctx, o.logger).Warn("failed to update entity media status",
			slog.String("media_status", string(status)),
			slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) notifyIfPending(ctx context.Context) {
	if o.notifier == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, o.logger)

	pending, err := o.queue.HasPending(ctx, o.config.MaxAttempts)
	if err != nil {
		log.Warn("failed to check for pending tasks", slog.String("error", err.Error()))
		return
	}
	if !pending {
		return
	}
	if err := o.notifier.Notify(ctx); err != nil {
		log.Warn("failed to notify workers", slog.String("error", err.Error()))
	}
}
