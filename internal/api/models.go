package api

import (
	"strings"
	"time"

	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

// CreateEntityRequest is the payload for POST /api/dreams and
// POST /api/manifestations. The video is described either by one
// video_prompt or by all three storyboard parts.
type CreateEntityRequest struct {
	Title            string `json:"title"              validate:"required,max=200"`
	Content          string `json:"content"            validate:"max=20000"`
	ImagePrompt      string `json:"image_prompt"       validate:"required,max=4000"`
	VideoPrompt      string `json:"video_prompt"       validate:"max=4000"`
	VideoPromptPart1 string `json:"video_prompt_part1" validate:"max=2000"`
	VideoPromptPart2 string `json:"video_prompt_part2" validate:"max=2000"`
	VideoPromptPart3 string `json:"video_prompt_part3" validate:"max=2000"`
	AspectRatio      string `json:"aspect_ratio"       validate:"omitempty,oneof=16:9 9:16 1:1 4:3 3:4"`
}

// Prompts converts the request into domain prompts.
func (r CreateEntityRequest) Prompts() domain.MediaPrompts {
	return domain.MediaPrompts{
		ImagePrompt: strings.TrimSpace(r.ImagePrompt),
		VideoPrompt: strings.TrimSpace(r.VideoPrompt),
		VideoPromptParts: [3]string{
			strings.TrimSpace(r.VideoPromptPart1),
			strings.TrimSpace(r.VideoPromptPart2),
			strings.TrimSpace(r.VideoPromptPart3),
		},
		AspectRatio: r.AspectRatio,
	}
}

// EntityResponse is the public view of a dream or manifestation.
type EntityResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	MediaStatus string    `json:"media_status"`
	ImageURL    string    `json:"image_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateEntityResponse is returned with 202 Accepted; media is generated later.
type CreateEntityResponse struct {
	Entity    EntityResponse `json:"entity"`
	TaskID    string         `json:"task_id"`
	VideoMode string         `json:"video_mode"`
}

// ListEntitiesResponse wraps a page of entities.
type ListEntitiesResponse struct {
	Items  []EntityResponse `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ProcessQueueResponse is the body of both queue trigger endpoints.
type ProcessQueueResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	TaskID   string `json:"taskId,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
}

// QueueStatsResponse reports task counts per status.
type QueueStatsResponse struct {
	service.QueueStats
	Total int `json:"total"`
}

// TaskResponse is the operator view of a queue task.
type TaskResponse struct {
	ID           string     `json:"id"`
	EntityType   string     `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	VideoMode    string     `json:"video_mode"`
	ImageURL     string     `json:"image_url,omitempty"`
	VideoURL     string     `json:"video_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func entityToResponse(e *domain.Entity) EntityResponse {
	return EntityResponse{
		ID:          e.ID.String(),
		Type:        string(e.Type),
		UserID:      e.UserID.String(),
		Title:       e.Title,
		Content:     e.Content,
		MediaStatus: string(e.MediaStatus),
		ImageURL:    e.ImageURL,
		VideoURL:    e.VideoURL,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func taskToResponse(t *domain.QueueTask) TaskResponse {
	return TaskResponse{
		ID:           t.ID.String(),
		EntityType:   string(t.EntityType),
		EntityID:     t.EntityID.String(),
		Status:       string(t.Status),
		Attempts:     t.Attempts,
		VideoMode:    string(t.VideoMode),
		ImageURL:     t.ImageURL,
		VideoURL:     t.VideoURL,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		CompletedAt:  t.CompletedAt,
	}
}

// cycleToResponse builds the trigger response for a cycle that returned
// without a cycle-level error.
func cycleToResponse(result task.CycleResult) ProcessQueueResponse {
	resp := ProcessQueueResponse{Success: true, Message: result.Message}
	if result.Processed() {
		resp.TaskID = result.TaskID.String()
		resp.ImageURL = result.ImageURL
		resp.VideoURL = result.VideoURL
	}
	return resp
}
