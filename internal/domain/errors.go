package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEntityType is returned for entity types other than dream or manifestation.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidMediaStatus is returned when a media status is not valid.
	ErrInvalidMediaStatus = errors.New("invalid media status")

	// ErrInvalidTaskStatus is returned when a queue task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrIncompleteMedia is returned when an entity would be marked completed
	// without both an image and a video URL.
	ErrIncompleteMedia = errors.New("media is incomplete")

	// ErrNoVideoPrompts is returned when a task carries neither a complete
	// three-part storyboard prompt nor a single video prompt.
	ErrNoVideoPrompts = errors.New("no video prompts found")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
