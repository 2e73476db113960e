package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewEntity(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	e, err := NewEntity(EntityTypeDream, userID, "  Flying over the sea ", "I was flying")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if e.ID == uuid.Nil {
		t.Error("Expected non-nil UUID")
	}
	if e.Title != "Flying over the sea" {
		t.Errorf("Expected trimmed title, got %q", e.Title)
	}
	if e.MediaStatus != MediaStatusPending {
		t.Errorf("Expected status %s, got %s", MediaStatusPending, e.MediaStatus)
	}

	if _, err := NewEntity(EntityTypeDream, uuid.Nil, "t", ""); !errors.Is(err, ErrEmptyEntityUserID) {
		t.Errorf("Expected %v, got %v", ErrEmptyEntityUserID, err)
	}
	if _, err := NewEntity("nightmare", userID, "t", ""); !errors.Is(err, ErrInvalidEntityType) {
		t.Errorf("Expected %v, got %v", ErrInvalidEntityType, err)
	}
	if _, err := NewEntity(EntityTypeManifestation, userID, "   ", ""); !errors.Is(err, ErrEmptyEntityTitle) {
		t.Errorf("Expected %v, got %v", ErrEmptyEntityTitle, err)
	}
}

func TestEntityCompleteMedia(t *testing.T) {
	t.Parallel()
	e, err := NewEntity(EntityTypeManifestation, uuid.New(), "New home", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.CompleteMedia("https://cdn/image.png", ""); !errors.Is(err, ErrIncompleteMedia) {
		t.Errorf("Expected %v, got %v", ErrIncompleteMedia, err)
	}
	if e.MediaStatus == MediaStatusCompleted {
		t.Error("entity must not complete without a video URL")
	}

	if err := e.CompleteMedia("https://cdn/image.png", "https://cdn/video.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.MediaStatus != MediaStatusCompleted {
		t.Errorf("Expected completed, got %s", e.MediaStatus)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("completed entity should validate, got %v", err)
	}
}

func TestParseEntityType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    EntityType
		wantErr bool
	}{
		{"dream", EntityTypeDream, false},
		{"Dreams", EntityTypeDream, false},
		{"manifestations", EntityTypeManifestation, false},
		{"memo", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEntityType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEntityType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseEntityType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
