package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tarikstafford/reve-app-sub000/internal/config"
	"github.com/tarikstafford/reve-app-sub000/internal/generation"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/gcs"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/gemini"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/kie"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
	"github.com/tarikstafford/reve-app-sub000/internal/storage"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

// Application holds the shared dependencies and releases them on Close.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB

	// Stores
	Queue    store.QueueStore
	Entities store.EntityStore

	// Queue processing
	Orchestrator *task.Orchestrator
	Runner       *task.TaskRunner
	Recovery     *task.RecoveryScanner
	Wake         *task.WakeSignal

	// LocalMedia is set when media is stored on the local filesystem.
	LocalMedia *storage.FSBackend

	// Services
	EntityService service.EntityService
	QueueService  service.QueueService

	closers []func() error
}

// Option customizes New. Tests use it to replace external collaborators.
type Option func(*options)

type options struct {
	generator task.MediaGenerator
	backend   storage.Backend
}

// WithGenerator replaces the provider-backed generation client.
func WithGenerator(g task.MediaGenerator) Option {
	return func(o *options) { o.generator = g }
}

// WithStorageBackend replaces the configured storage backend.
func WithStorageBackend(b storage.Backend) Option {
	return func(o *options) { o.backend = b }
}

// New wires every component over an open, migrated database.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB, opts ...Option) (*Application, error) {
	if cfg == nil || logger == nil || db == nil {
		return nil, errors.New("config, logger and db are required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Queue:    postgres.NewPostgresQueueStore(db, logger),
		Entities: postgres.NewPostgresEntityStore(db, logger),
		Wake:     task.NewWakeSignal(),
	}

	gen := o.generator
	if gen == nil {
		client, err := newGenerationClient(ctx, cfg.Generation, logger)
		if err != nil {
			return nil, err
		}
		gen = client
	}

	backend := o.backend
	if backend == nil {
		b, closeFn, err := newStorageBackend(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		backend = b
		if fsb, ok := b.(*storage.FSBackend); ok {
			app.LocalMedia = fsb
		}
		if closeFn != nil {
			app.closers = append(app.closers, closeFn)
		}
	}
	uploader := storage.NewUploader(backend, logger)
	logger.Info("storage backend initialized", slog.String("backend", cfg.Storage.Backend))

	// Wake-ups reach this instance's workers directly and, when Redis is
	// configured, every other instance through the wake channel.
	var (
		notifier task.Notifier = app.Wake
		listener *task.RedisNotifier
	)
	if cfg.Queue.RedisURL != "" {
		client, err := task.NewRedisClient(cfg.Queue.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		listener = task.NewRedisNotifier(client, cfg.Queue.WakeChannel, logger)
		notifier = task.MultiNotifier{app.Wake, listener}
		logger.Info("redis wake-ups enabled", slog.String("channel", cfg.Queue.WakeChannel))
	}

	finalizer := service.NewTxFinalizer(db, app.Entities, app.Queue)
	reconciler := task.NewReconciler(app.Queue, gen, uploader, finalizer, logger)

	app.Orchestrator = task.NewOrchestrator(app.Queue, app.Entities, reconciler, notifier, task.OrchestratorConfig{
		MaxAttempts:      cfg.Queue.MaxAttempts,
		StuckTaskTimeout: cfg.Queue.StuckTaskTimeout,
	}, logger)

	var err error
	app.Runner, err = task.NewTaskRunner(app.Orchestrator, app.Wake, listener, task.TaskRunnerConfig{
		WorkerCount: cfg.Queue.WorkerCount,
		Schedule:    cfg.Queue.Schedule,
	}, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create task runner: %w", err)
	}

	app.Recovery = task.NewRecoveryScanner(app.Queue, app.Entities, reconciler, cfg.Queue.RecoveryConcurrency, logger)

	app.EntityService, err = service.NewEntityService(db, app.Entities, app.Queue, app.Recovery, notifier,
		service.EntityServiceConfig{DefaultAspectRatio: cfg.Generation.DefaultAspectRatio}, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create entity service: %w", err)
	}
	app.QueueService, err = service.NewQueueService(db, app.Entities, app.Queue, notifier, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create queue service: %w", err)
	}

	return app, nil
}

// Close releases external clients. The database is owned by the caller.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("failed to close dependency", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

func newGenerationClient(ctx context.Context, cfg config.GenerationConfig, logger *slog.Logger) (*generation.Client, error) {
	kieClient, err := kie.NewClient(kie.Config{
		APIKey:  cfg.KieAPIKey,
		BaseURL: cfg.KieBaseURL,
		Timeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kie client: %w", err)
	}

	image, err := kie.NewImageProvider(kieClient, cfg.ImageModel)
	if err != nil {
		return nil, err
	}
	storyboard, err := kie.NewStoryboardProvider(kieClient, cfg.StoryboardModel)
	if err != nil {
		return nil, err
	}

	var legacy generation.Provider
	switch cfg.LegacyVideoProvider {
	case "gemini":
		legacy, err = gemini.NewVeoProvider(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.VeoModel}, logger)
	default:
		legacy, err = kie.NewVeo3Provider(kieClient, cfg.Veo3Model)
	}
	if err != nil {
		return nil, err
	}

	client, err := generation.NewClient(image, storyboard, legacy, generation.ClientConfig{
		ImagePoll: generation.PollConfig{Interval: cfg.ImagePollInterval, MaxAttempts: cfg.ImagePollAttempts},
		VideoPoll: generation.PollConfig{Interval: cfg.VideoPollInterval, MaxAttempts: cfg.VideoPollAttempts},
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("generation client initialized",
		slog.String("image", image.Name()),
		slog.String("storyboard", storyboard.Name()),
		slog.String("legacy_video", legacy.Name()))
	return client, nil
}

func newStorageBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, func() error, error) {
	switch cfg.Backend {
	case "supabase":
		b, err := storage.NewSupabaseBackend(storage.SupabaseConfig{
			URL:           cfg.SupabaseURL,
			ServiceKey:    cfg.SupabaseServiceKey,
			Bucket:        cfg.Bucket,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create supabase backend: %w", err)
		}
		return b, nil, nil
	case "gcs":
		b, err := gcs.New(ctx, gcs.Config{
			Bucket:          cfg.Bucket,
			PublicBaseURL:   cfg.PublicBaseURL,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gcs backend: %w", err)
		}
		return b, b.Close, nil
	case "local":
		return storage.NewLocalBackend(cfg.LocalRoot, cfg.PublicBaseURL), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
