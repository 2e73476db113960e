package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the state of a queue task.
type TaskStatus string

// Possible queue task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// DefaultMaxAttempts is the number of failed attempts after which a task is terminal.
const DefaultMaxAttempts = 3

// Common validation errors for QueueTask
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyImagePrompt = errors.New("image prompt cannot be empty")
)

// MediaPrompts carries the prompts supplied with a newly created entity.
type MediaPrompts struct {
	ImagePrompt      string
	VideoPrompt      string
	VideoPromptParts [3]string
	AspectRatio      string
}

// QueueTask is the durable job record that drives media generation for one
// entity. Empty strings stand for absent provider handles and URLs.
type QueueTask struct {
	ID               uuid.UUID  `json:"id"`
	EntityType       EntityType `json:"entity_type"`
	EntityID         uuid.UUID  `json:"entity_id"`
	UserID           uuid.UUID  `json:"user_id"`
	ImagePrompt      string     `json:"image_prompt"`
	AspectRatio      string     `json:"aspect_ratio"`
	VideoPrompt      string     `json:"video_prompt,omitempty"`
	VideoPromptParts [3]string  `json:"video_prompt_parts"`
	VideoMode        VideoMode  `json:"video_mode"`
	Status           TaskStatus `json:"status"`
	Attempts         int        `json:"attempts"`
	ImageTaskID      string     `json:"kie_image_task_id,omitempty"`
	VideoTaskID      string     `json:"kie_video_task_id,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	VideoURL         string     `json:"video_url,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewQueueTask creates the pending queue task for an entity. The video path
// is resolved here so workers never have to guess it later.
func NewQueueTask(entity *Entity, prompts MediaPrompts) (*QueueTask, error) {
	if entity == nil {
		return nil, ErrEmptyEntityID
	}
	now := time.Now().UTC()
	t := &QueueTask{
		ID:               uuid.New(),
		EntityType:       entity.Type,
		EntityID:         entity.ID,
		UserID:           entity.UserID,
		ImagePrompt:      strings.TrimSpace(prompts.ImagePrompt),
		AspectRatio:      prompts.AspectRatio,
		VideoPrompt:      prompts.VideoPrompt,
		VideoPromptParts: prompts.VideoPromptParts,
		VideoMode:        ResolveVideoSpec(prompts.VideoPrompt, prompts.VideoPromptParts).Mode(),
		Status:           TaskStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the QueueTask has valid data.
func (t *QueueTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.EntityID == uuid.Nil {
		return ErrEmptyEntityID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyEntityUserID
	}
	if !t.EntityType.Valid() {
		return ErrInvalidEntityType
	}
	if t.ImagePrompt == "" {
		return ErrEmptyImagePrompt
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	return nil
}

// VideoSpec returns the task's video path. Tasks stored before video_mode
// existed fall back to resolving from the prompt fields.
func (t *QueueTask) VideoSpec() VideoSpec {
	switch t.VideoMode {
	case VideoModeStoryboard:
		return StoryboardVideo{Shots: t.VideoPromptParts}
	case VideoModeLegacy:
		return LegacyVideo{Prompt: t.VideoPrompt}
	case VideoModeNone:
		return NoVideo{}
	default:
		return ResolveVideoSpec(t.VideoPrompt, t.VideoPromptParts)
	}
}

// Terminal reports whether the task will never be processed again.
func (t *QueueTask) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
