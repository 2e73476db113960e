package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/generation"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

// Mode selects how a Reconciler treats provider work that is not finished.
type Mode int

const (
	// ModeBlocking creates missing provider tasks and polls until they
	// finish. Workers use it.
	ModeBlocking Mode = iota

	// ModeCheckOnly only checks provider tasks that already exist and
	// returns ErrNotReady instead of waiting. It never creates a task.
	ModeCheckOnly
)

func (m Mode) String() string {
	if m == ModeCheckOnly {
		return "check_only"
	}
	return "blocking"
}

// Reconciler advances one queue task through image generation, video
// generation, re-upload and finalization. Every step that already happened
// (a stored provider handle, a stored image URL) is reused rather than
// repeated.
type Reconciler struct {
	queue     store.QueueStore
	gen       MediaGenerator
	uploader  MediaUploader
	finalizer Finalizer
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	queue store.QueueStore,
	gen MediaGenerator,
	uploader MediaUploader,
	finalizer Finalizer,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		queue:     queue,
		gen:       gen,
		uploader:  uploader,
		finalizer: finalizer,
		logger:    logger.With(slog.String("component", "reconciler")),
	}
}

// Reconcile drives task towards completion and returns the stored results.
// task is updated in place as handles and URLs are persisted.
func (r *Reconciler) Reconcile(ctx context.Context, task *domain.QueueTask, mode Mode) (store.TaskResult, error) {
	log := logger.FromContextOrDefault(ctx, r.logger).With(
		slog.String("task_id", task.ID.String()),
		slog.String("entity_id", task.EntityID.String()),
		slog.String("entity_type", string(task.EntityType)),
		slog.String("mode", mode.String()),
	)
	ctx = logger.WithLogger(ctx, log)

	imageURL, err := r.resolveImage(ctx, task, mode)
	if err != nil {
		return store.TaskResult{}, err
	}

	videoURL, err := r.resolveVideo(ctx, task, imageURL, mode)
	if err != nil {
		return store.TaskResult{}, err
	}

	result := store.TaskResult{
		ImageURL:    imageURL,
		VideoURL:    videoURL,
		ImageTaskID: task.ImageTaskID,
		VideoTaskID: task.VideoTaskID,
	}

	if err := r.finalizer.Finalize(ctx, task, result); err != nil {
		if !errors.Is(err, store.ErrStaleTransition) {
			return store.TaskResult{}, fmt.Errorf("failed to finalize task: %w", err)
		}
		// Somebody else finished the task first; their result stands.
		current, getErr := r.queue.GetByID(ctx, task.ID)
		if getErr != nil || current.Status != domain.TaskStatusCompleted {
			return store.TaskResult{}, fmt.Errorf("failed to finalize task: %w", err)
		}
		log.Info("task was completed concurrently")
		*task = *current
		return store.TaskResult{
			ImageURL:    current.ImageURL,
			VideoURL:    current.VideoURL,
			ImageTaskID: current.ImageTaskID,
			VideoTaskID: current.VideoTaskID,
		}, nil
	}

	task.Status = domain.TaskStatusCompleted
	task.ImageURL = imageURL
	task.VideoURL = videoURL
	log.Info("task completed", slog.String("image_url", imageURL), slog.String("video_url", videoURL))
	return result, nil
}

func (r *Reconciler) resolveImage(ctx context.Context, task *domain.QueueTask, mode Mode) (string, error) {
	if task.ImageURL != "" {
		return task.ImageURL, nil
	}

	providerURL, err := r.resolve(ctx, mode, stage{
		name:   "image",
		taskID: &task.ImageTaskID,
		check:  r.gen.CheckImageTaskStatus,
		poll:   r.gen.PollImageTask,
		create: func(ctx context.Context) (string, error) {
			return r.gen.CreateImageTask(ctx, task.ImagePrompt, task.AspectRatio)
		},
		save: func(ctx context.Context, id string) error {
			return r.queue.SaveImageTaskID(ctx, task.ID, id)
		},
	})
	if err != nil {
		return "", err
	}

	durable, err := r.uploader.DownloadAndUploadToStorage(ctx, providerURL, task.MediaPath(domain.MediaKindImage))
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if err := r.queue.SaveImageURL(ctx, task.ID, durable); err != nil {
		return "", fmt.Errorf("failed to save image url: %w", err)
	}
	task.ImageURL = durable
	return durable, nil
}

func (r *Reconciler) resolveVideo(ctx context.Context, task *domain.QueueTask, imageURL string, mode Mode) (string, error) {
	saveID := func(ctx context.Context, id string) error {
		return r.queue.SaveVideoTaskID(ctx, task.ID, id)
	}

	var s stage
	switch spec := task.VideoSpec().(type) {
	case domain.StoryboardVideo:
		s = stage{
			name:   "storyboard video",
			taskID: &task.VideoTaskID,
			check:  r.gen.CheckStoryboardTaskStatus,
			poll:   r.gen.PollStoryboardTask,
			create: func(ctx context.Context) (string, error) {
				return r.gen.CreateStoryboardVideoTask(ctx, imageURL, spec.Shots, task.AspectRatio)
			},
			save: saveID,
		}
	case domain.LegacyVideo:
		s = stage{
			name:   "veo3 video",
			taskID: &task.VideoTaskID,
			check:  r.gen.CheckVeo3TaskStatus,
			poll:   r.gen.PollVeo3Task,
			create: func(ctx context.Context) (string, error) {
				return r.gen.CreateVeo3VideoTask(ctx, spec.Prompt, task.AspectRatio)
			},
			save: saveID,
		}
	default:
		return "", ErrNoVideoPrompts
	}

	providerURL, err := r.resolve(ctx, mode, s)
	if err != nil {
		return "", err
	}

	durable, err := r.uploader.DownloadAndUploadToStorage(ctx, providerURL, task.MediaPath(domain.MediaKindVideo))
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	return durable, nil
}

// stage is one provider round trip: image, storyboard video or veo3 video.
type stage struct {
	name   string
	taskID *string
	check  func(ctx context.Context, taskID string) (string, error)
	poll   func(ctx context.Context, taskID string) (string, error)
	create func(ctx context.Context) (string, error)
	save   func(ctx context.Context, taskID string) error
}

// resolve returns the provider URL of a finished stage. A stored handle is
// always checked before anything new is submitted.
func (r *Reconciler) resolve(ctx context.Context, mode Mode, s stage) (string, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if id := *s.taskID; id != "" {
		url, err := s.check(ctx, id)
		if err != nil {
			r.forgetFailed(ctx, mode, s, err)
			return "", fmt.Errorf("failed to check %s task: %w", s.name, err)
		}
		if url != "" {
			log.Debug("provider task already finished",
				slog.String("stage", s.name),
				slog.String("provider_task_id", id))
			return url, nil
		}
		if mode == ModeCheckOnly {
			return "", ErrNotReady
		}
		return r.wait(ctx, mode, s)
	}

	if mode == ModeCheckOnly {
		return "", ErrNotReady
	}

	id, err := s.create(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create %s task: %w", s.name, err)
	}
	// Persist before polling so a crashed worker's successor checks this
	// task instead of paying for a new one.
	if err := s.save(ctx, id); err != nil {
		return "", fmt.Errorf("failed to save %s task id: %w", s.name, err)
	}
	*s.taskID = id
	log.Info("provider task created",
		slog.String("stage", s.name),
		slog.String("provider_task_id", id))

	return r.wait(ctx, mode, s)
}

func (r *Reconciler) wait(ctx context.Context, mode Mode, s stage) (string, error) {
	url, err := s.poll(ctx, *s.taskID)
	if err != nil {
		r.forgetFailed(ctx, mode, s, err)
		return "", fmt.Errorf("failed to poll %s task: %w", s.name, err)
	}
	return url, nil
}

// forgetFailed clears a handle the provider reported as failed so the next
// attempt submits a fresh task. Timeouts keep the handle.
func (r *Reconciler) forgetFailed(ctx context.Context, mode Mode, s stage, err error) {
	if mode != ModeBlocking || !errors.Is(err, generation.ErrTaskFailed) {
		return
	}
	if saveErr := s.save(context.WithoutCancel(ctx), ""); saveErr != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("failed to clear failed provider task id",
			slog.String("stage", s.name),
			slog.String("error", saveErr.Error()))
		return
	}
	*s.taskID = ""
}
