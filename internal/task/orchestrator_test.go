package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/generation"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

func TestRunCycle_EmptyQueue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result, err := f.orch.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, task.OutcomeIdle, result.Outcome)
	assert.Equal(t, task.MessageQueueEmpty, result.Message)
	assert.False(t, result.Processed())
	assert.Zero(t, f.image.SubmitCount())
}

func TestRunCycle_CompletesStoryboardTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	entity, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)

	wantImage := publicBase + "/dreams/" + entity.UserID.String() + "/" + entity.ID.String() + "/image.png"
	wantVideo := publicBase + "/dreams/" + entity.UserID.String() + "/" + entity.ID.String() + "/video.mp4"

	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	assert.Equal(t, qt.ID, result.TaskID)
	assert.Equal(t, wantImage, result.ImageURL)
	assert.Equal(t, wantVideo, result.VideoURL)

	stored := f.task(t, qt.ID)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.Equal(t, 0, stored.Attempts)
	assert.Equal(t, "image-task-1", stored.ImageTaskID)
	assert.Equal(t, "storyboard-task-1", stored.VideoTaskID)
	assert.Equal(t, wantImage, stored.ImageURL)
	assert.Equal(t, wantVideo, stored.VideoURL)
	assert.NotNil(t, stored.CompletedAt)

	got := f.entity(t, entity)
	assert.Equal(t, domain.MediaStatusCompleted, got.MediaStatus)
	assert.Equal(t, wantImage, got.ImageURL)
	assert.Equal(t, wantVideo, got.VideoURL)

	assert.Equal(t, "PNG", f.object(t, qt.MediaPath(domain.MediaKindImage)))
	assert.Equal(t, "STORYBOARD-MP4", f.object(t, qt.MediaPath(domain.MediaKindVideo)))

	// The storyboard is seeded with the durable image, not the provider's.
	require.Len(t, f.storyboard.SubmitCalls.Requests, 1)
	req := f.storyboard.SubmitCalls.Requests[0]
	assert.Equal(t, wantImage, req.ImageURL)
	assert.Equal(t, []string{"shot one", "shot two", "shot three"}, req.Shots)
	assert.Equal(t, "9:16", req.AspectRatio)
	assert.Zero(t, f.legacy.SubmitCount())

	// Nothing left to do, so no wake-up is sent.
	assert.Zero(t, f.notifier.Count())
}

func TestRunCycle_SelectsVideoProviderFromPrompts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	manifestation, legacyTask := f.enqueue(t, domain.EntityTypeManifestation, legacyPrompts())
	_, storyTask := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	first, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, legacyTask.ID, first.TaskID)
	assert.Equal(t, 1, f.legacy.SubmitCount())
	assert.Zero(t, f.storyboard.SubmitCount())
	assert.Equal(t,
		publicBase+"/manifestations/"+manifestation.UserID.String()+"/"+manifestation.ID.String()+"/video.mp4",
		first.VideoURL)
	assert.Equal(t, "VEO-MP4", f.object(t, legacyTask.MediaPath(domain.MediaKindVideo)))

	require.Len(t, f.legacy.SubmitCalls.Requests, 1)
	assert.Equal(t, "slow pan across the garden", f.legacy.SubmitCalls.Requests[0].Prompt)
	assert.Equal(t, "16:9", f.legacy.SubmitCalls.Requests[0].AspectRatio)

	// The first cycle saw the second task waiting.
	assert.Equal(t, 1, f.notifier.Count())

	second, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, storyTask.ID, second.TaskID)
	assert.Equal(t, 1, f.storyboard.SubmitCount())
	assert.Equal(t, 1, f.legacy.SubmitCount())
}

func TestRunCycle_RetriesAfterImageCreateFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	entity, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	var mu sync.Mutex
	calls := 0
	f.image.SubmitFn = func(context.Context, generation.Request) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", errors.New("upstream 503")
		}
		return "image-retry", nil
	}

	result, err := f.orch.RunCycle(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrProviderCreate)
	assert.Equal(t, task.OutcomeRetry, result.Outcome)
	assert.Equal(t, 1, result.Attempts)

	stored := f.task(t, qt.ID)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, stored.ErrorMessage, "upstream 503")
	assert.Equal(t, domain.MediaStatusFailed, f.entity(t, entity).MediaStatus)
	assert.Equal(t, 1, f.notifier.Count())

	result, err = f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeCompleted, result.Outcome)

	stored = f.task(t, qt.ID)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "image-retry", stored.ImageTaskID)
	assert.Equal(t, domain.MediaStatusCompleted, f.entity(t, entity).MediaStatus)
}

func TestRunCycle_FailsAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	entity, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())
	f.image.SubmitErr = errors.New("quota exceeded")

	want := []task.Outcome{task.OutcomeRetry, task.OutcomeRetry, task.OutcomeFailed}
	for i, outcome := range want {
		result, err := f.orch.RunCycle(ctx)
		require.Error(t, err, "cycle %d", i+1)
		assert.Equal(t, outcome, result.Outcome, "cycle %d", i+1)
		assert.Equal(t, i+1, result.Attempts, "cycle %d", i+1)
		assert.Equal(t, i+1, f.task(t, qt.ID).Attempts, "attempts only grow")
	}

	stored := f.task(t, qt.ID)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, domain.DefaultMaxAttempts, stored.Attempts)
	assert.Equal(t, domain.MediaStatusFailed, f.entity(t, entity).MediaStatus)

	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeIdle, result.Outcome)
	assert.Equal(t, 3, f.image.SubmitCount())
}

func TestRunCycle_NoVideoPrompts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, qt := f.enqueue(t, domain.EntityTypeDream, domain.MediaPrompts{ImagePrompt: "only an image"})

	_, err := f.orch.RunCycle(context.Background())
	require.ErrorIs(t, err, task.ErrNoVideoPrompts)

	stored := f.task(t, qt.ID)
	assert.Contains(t, stored.ErrorMessage, "no video prompts found")
	// The image stage still completed and is kept for later attempts.
	assert.NotEmpty(t, stored.ImageURL)
	assert.Zero(t, f.storyboard.SubmitCount())
	assert.Zero(t, f.legacy.SubmitCount())
}

func TestRunCycle_ReusesStoredProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	var mu sync.Mutex
	calls := 0
	f.storyboard.SubmitFn = func(context.Context, generation.Request) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", errors.New("storyboard model overloaded")
		}
		return "storyboard-second", nil
	}

	_, err := f.orch.RunCycle(ctx)
	require.Error(t, err)
	afterFirst := f.task(t, qt.ID)
	require.NotEmpty(t, afterFirst.ImageURL)
	imageChecks := f.image.StatusCount()

	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	assert.Equal(t, afterFirst.ImageURL, result.ImageURL)

	assert.Equal(t, 1, f.image.SubmitCount(), "image is not generated twice")
	assert.Equal(t, imageChecks, f.image.StatusCount(), "stored image URL skips the image stage")
	assert.Equal(t, "storyboard-second", f.task(t, qt.ID).VideoTaskID)
}

func TestRunCycle_ChecksStoredHandleBeforeCreating(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())
	require.NoError(t, f.queue.SaveImageTaskID(ctx, qt.ID, "image-from-earlier-run"))

	_, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)

	assert.Zero(t, f.image.SubmitCount())
	assert.Equal(t, []string{"image-from-earlier-run"}, f.image.StatusCalls.TaskIDs)
	assert.Equal(t, "image-from-earlier-run", f.task(t, qt.ID).ImageTaskID)
}

func TestRunCycle_ProviderFailureForgetsHandle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	f.image.StatusFn = func(_ context.Context, taskID string) (generation.Status, error) {
		if taskID == "image-task-1" {
			return generation.Status{State: generation.StateFailed, Message: "content policy"}, nil
		}
		return generation.Status{State: generation.StateSucceeded, URL: f.mediaURL + "/image.png"}, nil
	}

	_, err := f.orch.RunCycle(ctx)
	require.ErrorIs(t, err, generation.ErrTaskFailed)
	assert.Empty(t, f.task(t, qt.ID).ImageTaskID)

	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 2, f.image.SubmitCount())
	assert.Equal(t, "image-task-2", f.task(t, qt.ID).ImageTaskID)
}

func TestRunCycle_PollTimeoutKeepsHandle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())
	f.image.PendingChecks = 6

	_, err := f.orch.RunCycle(ctx)
	require.ErrorIs(t, err, generation.ErrPollTimeout)
	assert.Equal(t, "image-task-1", f.task(t, qt.ID).ImageTaskID)

	// The provider finishes while the task waits; the next attempt only checks.
	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, f.image.SubmitCount())
}

func TestRunCycle_MarksEntityProcessingOnClaim(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	entity, _ := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	var seen domain.MediaStatus
	f.image.StatusFn = func(ctx context.Context, _ string) (generation.Status, error) {
		got, err := f.entities.GetByID(ctx, entity.Type, entity.ID)
		if err == nil {
			seen = got.MediaStatus
		}
		return generation.Status{State: generation.StateSucceeded, URL: f.mediaURL + "/image.png"}, nil
	}

	_, err := f.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MediaStatusProcessing, seen)
}

func TestRunCycle_ResetsStuckTasks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	// A worker claimed the task and vanished.
	claimed, err := f.queue.ClaimNext(ctx, domain.DefaultMaxAttempts)
	require.NoError(t, err)
	require.Equal(t, qt.ID, claimed.ID)

	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeIdle, result.Outcome, "a recently claimed task is left alone")

	f.backdate(t, qt.ID, 11*time.Minute)

	result, err = f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	assert.Equal(t, qt.ID, result.TaskID)
	assert.Equal(t, 1, f.task(t, qt.ID).Attempts, "the reclaim consumed an attempt")
}

func TestSweepStuck_FailsTaskThatKeepsCrashingItsWorker(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	entity, qt := f.enqueue(t, domain.EntityTypeManifestation, storyboardPrompts())

	for crash := 1; crash <= domain.DefaultMaxAttempts; crash++ {
		_, err := f.queue.ClaimNext(ctx, domain.DefaultMaxAttempts)
		require.NoError(t, err)
		f.backdate(t, qt.ID, 11*time.Minute)

		reset, err := f.orch.SweepStuck(ctx, 10*time.Minute)
		require.NoError(t, err)
		require.Len(t, reset, 1)
		assert.Equal(t, crash, reset[0].Attempts)
	}

	stored := f.task(t, qt.ID)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, domain.DefaultMaxAttempts, stored.Attempts)
	assert.Contains(t, stored.ErrorMessage, "processing stalled")
	assert.Equal(t, domain.MediaStatusFailed, f.entity(t, entity).MediaStatus)

	result, err := f.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeIdle, result.Outcome)
	assert.Zero(t, f.image.SubmitCount())
}

func TestRunCycle_ConcurrentCyclesProcessTaskOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, qt := f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	const workers = 4
	results := make([]task.CycleResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.orch.RunCycle(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	completed := 0
	for i := range results {
		require.NoError(t, errs[i])
		switch results[i].Outcome {
		case task.OutcomeCompleted:
			completed++
			assert.Equal(t, qt.ID, results[i].TaskID)
		case task.OutcomeIdle, task.OutcomeConflict:
			assert.False(t, results[i].Processed())
		default:
			t.Fatalf("unexpected outcome %q", results[i].Outcome)
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, f.image.SubmitCount())
	assert.Equal(t, 1, f.storyboard.SubmitCount())
}

func TestRunCycle_NotifierErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.notifier.err = errors.New("redis down")
	f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())
	f.enqueue(t, domain.EntityTypeDream, storyboardPrompts())

	result, err := f.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, f.notifier.Count())
}
