package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which user-owned table a queue task belongs to.
type EntityType string

// Supported entity types
const (
	EntityTypeDream         EntityType = "dream"
	EntityTypeManifestation EntityType = "manifestation"
)

// ParseEntityType converts a raw string (singular or plural) into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dream", "dreams":
		return EntityTypeDream, nil
	case "manifestation", "manifestations":
		return EntityTypeManifestation, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t == EntityTypeDream || t == EntityTypeManifestation
}

// Plural returns the pluralised name used for table names and storage prefixes.
func (t EntityType) Plural() string {
	return string(t) + "s"
}

// MediaStatus tracks generation progress on an entity.
type MediaStatus string

// Possible media status values
const (
	MediaStatusPending    MediaStatus = "pending"
	MediaStatusProcessing MediaStatus = "processing"
	MediaStatusCompleted  MediaStatus = "completed"
	MediaStatusFailed     MediaStatus = "failed"
)

// Valid reports whether s is a known media status.
func (s MediaStatus) Valid() bool {
	switch s {
	case MediaStatusPending, MediaStatusProcessing, MediaStatusCompleted, MediaStatusFailed:
		return true
	default:
		return false
	}
}

// InFlight reports whether media for the entity may still be produced.
func (s MediaStatus) InFlight() bool {
	return s == MediaStatusPending || s == MediaStatusProcessing
}

// Common validation errors for Entity
var (
	ErrEmptyEntityID     = errors.New("entity ID cannot be empty")
	ErrEmptyEntityUserID = errors.New("entity user ID cannot be empty")
	ErrEmptyEntityTitle  = errors.New("entity title cannot be empty")
)

// Entity is a user-owned dream or manifestation that receives a generated
// image and video.
type Entity struct {
	ID          uuid.UUID   `json:"id"`
	Type        EntityType  `json:"type"`
	UserID      uuid.UUID   `json:"user_id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	MediaStatus MediaStatus `json:"media_status"`
	ImageURL    string      `json:"image_url,omitempty"`
	VideoURL    string      `json:"video_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewEntity creates a pending entity with a fresh ID.
func NewEntity(entityType EntityType, userID uuid.UUID, title, content string) (*Entity, error) {
	now := time.Now().UTC()
	e := &Entity{
		ID:          uuid.New(),
		Type:        entityType,
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Content:     content,
		MediaStatus: MediaStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks if the Entity has valid data.
func (e *Entity) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEntityID
	}
	if e.UserID == uuid.Nil {
		return ErrEmptyEntityUserID
	}
	if !e.Type.Valid() {
		return ErrInvalidEntityType
	}
	if e.Title == "" {
		return ErrEmptyEntityTitle
	}
	if !e.MediaStatus.Valid() {
		return ErrInvalidMediaStatus
	}
	if e.MediaStatus == MediaStatusCompleted && (e.ImageURL == "" || e.VideoURL == "") {
		return ErrIncompleteMedia
	}
	return nil
}

// CompleteMedia attaches the final media URLs and marks the entity completed.
// Both URLs are required.
func (e *Entity) CompleteMedia(imageURL, videoURL string) error {
	if imageURL == "" || videoURL == "" {
		return ErrIncompleteMedia
	}
	e.ImageURL = imageURL
	e.VideoURL = videoURL
	e.MediaStatus = MediaStatusCompleted
	e.UpdatedAt = time.Now().UTC()
	return nil
}
