package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrProviderCreate is returned when a provider rejects or fails a task submission.
	ErrProviderCreate = errors.New("provider task creation failed")

	// ErrPollTimeout is returned when a blocking poll exhausts its attempts
	// without the task reaching a terminal state.
	ErrPollTimeout = errors.New("provider task did not finish in time")

	// ErrTaskFailed is returned when the provider reports the task as failed.
	ErrTaskFailed = errors.New("provider task failed")

	// ErrInvalidResponse is returned when a provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrInvalidConfig is returned when the client or a provider is misconfigured
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrEmptyPrompt is returned when a task is submitted without a prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrEmptyTaskID is returned when a status query has no task handle.
	ErrEmptyTaskID = errors.New("provider task ID cannot be empty")

	// errNotReady marks a poll iteration that found the task still running.
	errNotReady = errors.New("provider task not ready")
)
