package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/tarikstafford/reve-app-sub000/internal/generation"
)

// MockProvider implements generation.Provider for testing.
//
// Without function overrides it submits tasks with sequential IDs and
// reports each task as succeeded with ResultURL.
type MockProvider struct {
	// ProviderName is returned by Name; defaults to "mock".
	ProviderName string

	// SubmitFn allows test cases to mock the Submit behavior
	SubmitFn func(ctx context.Context, req generation.Request) (string, error)

	// StatusFn allows test cases to mock the Status behavior
	StatusFn func(ctx context.Context, taskID string) (generation.Status, error)

	// Default response values
	ResultURL string
	SubmitErr error
	StatusErr error

	// PendingChecks makes the first N status checks of every task report running.
	PendingChecks int

	mu sync.Mutex

	// Call tracking for verification
	SubmitCalls struct {
		Count    int
		Requests []generation.Request
	}
	StatusCalls struct {
		Count   int
		TaskIDs []string
	}

	checks map[string]int
}

// NewMockProvider creates a provider that completes every task with resultURL.
func NewMockProvider(name, resultURL string) *MockProvider {
	return &MockProvider{ProviderName: name, ResultURL: resultURL}
}

// Name implements generation.Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Submit implements generation.Provider.
func (m *MockProvider) Submit(ctx context.Context, req generation.Request) (string, error) {
	m.mu.Lock()
	m.SubmitCalls.Count++
	m.SubmitCalls.Requests = append(m.SubmitCalls.Requests, req)
	n := m.SubmitCalls.Count
	m.mu.Unlock()

	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	return fmt.Sprintf("%s-task-%d", m.Name(), n), nil
}

// Status implements generation.Provider.
func (m *MockProvider) Status(ctx context.Context, taskID string) (generation.Status, error) {
	m.mu.Lock()
	m.StatusCalls.Count++
	m.StatusCalls.TaskIDs = append(m.StatusCalls.TaskIDs, taskID)
	if m.checks == nil {
		m.checks = make(map[string]int)
	}
	m.checks[taskID]++
	seen := m.checks[taskID]
	m.mu.Unlock()

	if m.StatusFn != nil {
		return m.StatusFn(ctx, taskID)
	}
	if m.StatusErr != nil {
		return generation.Status{}, m.StatusErr
	}
	if seen <= m.PendingChecks {
		return generation.Status{State: generation.StateRunning}, nil
	}
	return generation.Status{State: generation.StateSucceeded, URL: m.ResultURL}, nil
}

// SubmitCount returns the number of Submit calls.
func (m *MockProvider) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SubmitCalls.Count
}

// StatusCount returns the number of Status calls.
func (m *MockProvider) StatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusCalls.Count
}

// Reset resets the call tracking state
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SubmitCalls.Count = 0
	m.SubmitCalls.Requests = nil
	m.StatusCalls.Count = 0
	m.StatusCalls.TaskIDs = nil
	m.checks = nil
}
