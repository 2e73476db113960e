package generation

import "context"

// State is the lifecycle state reported by a provider.
type State string

// Provider task states
const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Request describes one generation job. Providers read the fields they need.
type Request struct {
	// Prompt is the text prompt for image and single-prompt video jobs.
	Prompt string

	// AspectRatio is a ratio such as "9:16" or "16:9".
	AspectRatio string

	// ImageURL seeds image-to-video jobs.
	ImageURL string

	// Shots are the ordered scene prompts of a storyboard job.
	Shots []string
}

// Status is a provider's view of a submitted task.
type Status struct {
	State State

	// URL is the provider-hosted result, set when State is StateSucceeded.
	URL string

	// Message carries the provider's failure reason, if any.
	Message string
}

// Provider defines the boundary between the queue and one external
// generation service for one kind of media.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Submit creates a provider task and returns its handle.
	Submit(ctx context.Context, req Request) (string, error)

	// Status fetches the current state of a provider task. It must not
	// create new work on the provider side.
	Status(ctx context.Context, taskID string) (Status, error)
}
