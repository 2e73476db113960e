package task

import (
	"context"
	"errors"

	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
)

var (
	// ErrNoVideoPrompts is returned when a task has neither a complete
	// storyboard nor a legacy video prompt.
	ErrNoVideoPrompts = domain.ErrNoVideoPrompts

	// ErrNotReady is returned by a check-only reconcile when provider work
	// is still running or has not been started.
	ErrNotReady = errors.New("media not ready")
)

// MediaGenerator creates and resolves provider tasks. It is implemented by
// *generation.Client.
type MediaGenerator interface {
	CreateImageTask(ctx context.Context, prompt, aspectRatio string) (string, error)
	CheckImageTaskStatus(ctx context.Context, taskID string) (string, error)
	PollImageTask(ctx context.Context, taskID string) (string, error)

	CreateStoryboardVideoTask(ctx context.Context, imageURL string, shots [3]string, aspectRatio string) (string, error)
	CheckStoryboardTaskStatus(ctx context.Context, taskID string) (string, error)
	PollStoryboardTask(ctx context.Context, taskID string) (string, error)

	CreateVeo3VideoTask(ctx context.Context, prompt, aspectRatio string) (string, error)
	CheckVeo3TaskStatus(ctx context.Context, taskID string) (string, error)
	PollVeo3Task(ctx context.Context, taskID string) (string, error)
}

// MediaUploader copies provider-hosted media to durable storage. It is
// implemented by *storage.Uploader.
type MediaUploader interface {
	DownloadAndUploadToStorage(ctx context.Context, sourceURL, destinationPath string) (string, error)
}

// Finalizer records a finished task: the entity gets both URLs and becomes
// completed, and the queue task is marked completed with its results.
type Finalizer interface {
	Finalize(ctx context.Context, task *domain.QueueTask, result store.TaskResult) error
}

// Notifier wakes the workers that drain the queue.
type Notifier interface {
	Notify(ctx context.Context) error
}

// CycleRunner runs one processing cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleResult, error)
}
