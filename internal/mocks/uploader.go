package mocks

import (
	"context"
	"sync"
)

// MockUploader implements the media uploader used by the task package.
// By default it returns BaseURL + "/" + destinationPath.
type MockUploader struct {
	// UploadFn allows test cases to mock the DownloadAndUploadToStorage behavior
	UploadFn func(ctx context.Context, sourceURL, destinationPath string) (string, error)

	// Default response values
	BaseURL string
	Err     error

	// Call tracking for verification
	UploadCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		Count        int
		SourceURLs   []string
		Destinations []string
	}
}

// NewMockUploader creates an uploader that reports URLs under baseURL.
func NewMockUploader(baseURL string) *MockUploader {
	return &MockUploader{BaseURL: baseURL}
}

// DownloadAndUploadToStorage records the call and returns the configured result.
func (m *MockUploader) DownloadAndUploadToStorage(ctx context.Context, sourceURL, destinationPath string) (string, error) {
	m.UploadCalls.mu.Lock()
	m.UploadCalls.Count++
	m.UploadCalls.SourceURLs = append(m.UploadCalls.SourceURLs, sourceURL)
	m.UploadCalls.Destinations = append(m.UploadCalls.Destinations, destinationPath)
	m.UploadCalls.mu.Unlock()

	if m.UploadFn != nil {
		return m.UploadFn(ctx, sourceURL, destinationPath)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.BaseURL + "/" + destinationPath, nil
}

// Count returns the number of uploads.
func (m *MockUploader) Count() int {
	m.UploadCalls.mu.Lock()
	defer m.UploadCalls.mu.Unlock()
	return m.UploadCalls.Count
}
