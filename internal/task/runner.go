package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// Schedule is the cron expression for the periodic wake-up that stands
	// in for the external scheduler, e.g. "@every 1m". Empty disables it.
	Schedule string
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		Schedule:    "@every 1m",
	}
}

// TaskRunner manages background queue processing: a worker pool, its wake
// signal, the periodic schedule and an optional Redis listener.
type TaskRunner struct {
	wake     *WakeSignal
	pool     *WorkerPool
	cron     *cron.Cron
	listener *RedisNotifier
	stopSub  func()
	config   TaskRunnerConfig
	logger   *slog.Logger
}

// NewTaskRunner creates a new TaskRunner. listener may be nil.
func NewTaskRunner(
	cycles CycleRunner,
	wake *WakeSignal,
	listener *RedisNotifier,
	config TaskRunnerConfig,
	logger *slog.Logger,
) (*TaskRunner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if wake == nil {
		wake = NewWakeSignal()
	}
	logger = logger.With(slog.String("component", "task_runner"))

	r := &TaskRunner{
		wake:     wake,
		pool:     NewWorkerPool(cycles, wake.C(), WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		listener: listener,
		config:   config,
		logger:   logger,
	}

	if config.Schedule != "" {
		r.cron = cron.New()
		if _, err := r.cron.AddFunc(config.Schedule, func() { r.wake.Wake(WakeSourceSchedule) }); err != nil {
			return nil, fmt.Errorf("invalid queue schedule %q: %w", config.Schedule, err)
		}
	}
	return r, nil
}

// Start begins processing. Work left over from a previous run is picked up
// by an immediate wake-up.
func (r *TaskRunner) Start(ctx context.Context) error {
	if r.listener != nil {
		stop, err := r.listener.Listen(ctx, r.wake)
		if err != nil {
			return fmt.Errorf("failed to start wake listener: %w", err)
		}
		r.stopSub = stop
	}

	r.pool.Start()
	if r.cron != nil {
		r.cron.Start()
	}

	r.logger.Info("task runner started",
		slog.Int("worker_count", r.config.WorkerCount),
		slog.String("schedule", r.config.Schedule),
		slog.Bool("redis_wakeups", r.listener != nil))

	r.Trigger()
	return nil
}

// Trigger wakes the workers.
func (r *TaskRunner) Trigger() {
	r.wake.Wake(WakeSourceNotify)
}

// Notify implements Notifier.
func (r *TaskRunner) Notify(context.Context) error {
	r.Trigger()
	return nil
}

// Stop gracefully shuts down the task runner
func (r *TaskRunner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	if r.stopSub != nil {
		r.stopSub()
	}
	r.pool.Stop()
}
