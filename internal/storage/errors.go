package storage

import "errors"

var (
	// ErrDownloadFailed is returned when the source media cannot be fetched.
	ErrDownloadFailed = errors.New("media download failed")

	// ErrUploadFailed is returned when the backend rejects the write.
	ErrUploadFailed = errors.New("media upload failed")

	// ErrInvalidPath is returned for empty, absolute or escaping object paths.
	ErrInvalidPath = errors.New("invalid storage path")
)
