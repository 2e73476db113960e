package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Backend stores objects and reports where they can be read publicly.
type Backend interface {
	// Write stores the content of r at objectPath, replacing any existing
	// object, and returns its public URL.
	Write(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
}

// CleanPath validates an object path and returns it in canonical form.
func CleanPath(objectPath string) (string, error) {
	if objectPath == "" || strings.HasPrefix(objectPath, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	cleaned := path.Clean(objectPath)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return cleaned, nil
}

// PublicURL joins a base URL and an object path.
func PublicURL(baseURL, objectPath string) string {
	return strings.TrimRight(baseURL, "/") + "/" + objectPath
}
