package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntity(t *testing.T) *Entity {
	t.Helper()
	e, err := NewEntity(EntityTypeDream, uuid.New(), "Lucid", "")
	require.NoError(t, err)
	return e
}

func TestResolveVideoSpec(t *testing.T) {
	t.Parallel()

	t.Run("all three parts select storyboard", func(t *testing.T) {
		t.Parallel()
		spec := ResolveVideoSpec("legacy", [3]string{"a", "b", "c"})
		sb, ok := spec.(StoryboardVideo)
		require.True(t, ok)
		assert.Equal(t, [3]string{"a", "b", "c"}, sb.Shots)
		assert.Equal(t, VideoModeStoryboard, spec.Mode())
	})

	t.Run("partial parts fall back to legacy prompt", func(t *testing.T) {
		t.Parallel()
		spec := ResolveVideoSpec("one prompt", [3]string{"a", "", "c"})
		lv, ok := spec.(LegacyVideo)
		require.True(t, ok)
		assert.Equal(t, "one prompt", lv.Prompt)
	})

	t.Run("no prompts resolve to none", func(t *testing.T) {
		t.Parallel()
		spec := ResolveVideoSpec("  ", [3]string{"a", "b", ""})
		assert.Equal(t, VideoModeNone, spec.Mode())
	})
}

func TestNewQueueTask(t *testing.T) {
	t.Parallel()
	e := newTestEntity(t)

	task, err := NewQueueTask(e, MediaPrompts{
		ImagePrompt:      "a lighthouse",
		VideoPromptParts: [3]string{"s1", "s2", "s3"},
		AspectRatio:      "9:16",
	})
	require.NoError(t, err)

	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.Attempts)
	assert.Equal(t, e.ID, task.EntityID)
	assert.Equal(t, e.UserID, task.UserID)
	assert.Equal(t, VideoModeStoryboard, task.VideoMode)

	_, err = NewQueueTask(e, MediaPrompts{ImagePrompt: " "})
	assert.ErrorIs(t, err, ErrEmptyImagePrompt)
}

func TestQueueTaskVideoSpecFallback(t *testing.T) {
	t.Parallel()
	task := &QueueTask{VideoPrompt: "walk on the beach"}

	assert.Equal(t, VideoModeLegacy, task.VideoSpec().Mode())

	task.VideoMode = VideoModeNone
	assert.Equal(t, VideoModeNone, task.VideoSpec().Mode())
}

func TestMediaPath(t *testing.T) {
	t.Parallel()
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	entityID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t,
		"dreams/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/image.png",
		MediaPath(EntityTypeDream, userID, entityID, MediaKindImage))
	assert.Equal(t,
		"manifestations/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/video.mp4",
		MediaPath(EntityTypeManifestation, userID, entityID, MediaKindVideo))
	assert.Equal(t, "video/mp4", MediaKindVideo.ContentType())
}
