package kie

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when the client is built without credentials.
	ErrMissingAPIKey = errors.New("kie API key is required")

	// ErrMissingModel is returned when a provider is built without a model name.
	ErrMissingModel = errors.New("kie model is required")
)

// APIError is a non-success reply from kie.ai, either an HTTP error status
// or an envelope whose code is not 200.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 && e.Code != e.StatusCode {
		return fmt.Sprintf("kie api error: http %d, code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kie api error: http %d: %s", e.StatusCode, e.Message)
}
