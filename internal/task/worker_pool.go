package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that drain the queue
// whenever they are woken. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// cycles runs one processing cycle per call
	cycles CycleRunner

	// wake delivers wake-ups from every source
	wake <-chan struct{}

	// workerCount is the number of concurrent workers to start
	workerCount int

	// signals fans a wake-up out to each worker
	signals []chan struct{}

	// wg tracks active goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx context.Context

	// cancel is the function to call to cancel the context
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when a cycle returns an error.
	// If nil, errors are only logged
	errorHandler func(result CycleResult, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(cycles CycleRunner, wake <-chan struct{}, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	signals := make([]chan struct{}, workerCount)
	for i := range signals {
		signals[i] = make(chan struct{}, 1)
	}

	return &WorkerPool{
		cycles:      cycles,
		wake:        wake,
		workerCount: workerCount,
		signals:     signals,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With(slog.String("component", "worker_pool")),
	}
}

// SetErrorHandler allows setting a custom handler for failed cycles
func (p *WorkerPool) SetErrorHandler(handler func(result CycleResult, err error)) {
	p.errorHandler = handler
}

// Start launches the dispatcher and the worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool", "worker_count", p.workerCount)

	p.wg.Add(1)
	go p.dispatch()

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels the workers and waits for in-flight cycles to return.
// A cycle blocked in a provider poll observes the cancellation and records
// its failure before exiting.
func (p *WorkerPool) Stop() {
	p.logger.Info("stopping worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// dispatch broadcasts each wake-up to every worker. Busy workers already
// hold a pending signal and pick it up when their current drain ends.
func (p *WorkerPool) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
			for _, s := range p.signals {
				select {
				case s <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With("worker_id", id)
	log.Debug("starting worker")

	for {
		select {
		case <-p.ctx.Done():
			log.Debug("stopping worker")
			return
		case <-p.signals[id]:
			p.drain(log)
		}
	}
}

// drain runs cycles until the queue reports idle, the claim itself fails or
// the pool is stopped. Lost claim races keep draining since another task
// may be waiting.
func (p *WorkerPool) drain(log *slog.Logger) {
	for p.ctx.Err() == nil {
		result, err := p.cycles.RunCycle(p.ctx)
		if err != nil {
			if result.Processed() {
				log.Warn("cycle failed",
					"task_id", result.TaskID.String(),
					"outcome", string(result.Outcome),
					"error", err.Error())
			} else {
				log.Error("cycle could not claim a task", "error", err.Error())
			}
			if p.errorHandler != nil {
				p.errorHandler(result, err)
			}
			if !result.Processed() {
				return
			}
			continue
		}
		if result.Outcome == OutcomeIdle {
			return
		}
	}
}
