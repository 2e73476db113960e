package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"
)

// FSBackend stores objects on an afero filesystem. It backs local
// development (an OS directory served as static files) and tests
// (an in-memory filesystem).
type FSBackend struct {
	fs      afero.Fs
	baseURL string
}

var _ Backend = (*FSBackend)(nil)

// NewFSBackend stores objects under fs and reports URLs under baseURL.
func NewFSBackend(fs afero.Fs, baseURL string) *FSBackend {
	return &FSBackend{fs: fs, baseURL: baseURL}
}

// NewLocalBackend stores objects below root on the OS filesystem.
func NewLocalBackend(root, baseURL string) *FSBackend {
	if baseURL == "" {
		baseURL = "file://" + filepath.ToSlash(root)
	}
	return NewFSBackend(afero.NewBasePathFs(afero.NewOsFs(), root), baseURL)
}

// Write implements Backend.
func (b *FSBackend) Write(ctx context.Context, objectPath string, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	name := filepath.FromSlash(clean)

	// Write to a sibling file first so readers never see a partial object.
	tmp := name + ".partial"
	if err := afero.WriteReader(b.fs, tmp, r); err != nil {
		_ = b.fs.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	if err := b.fs.Rename(tmp, name); err != nil {
		_ = b.fs.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", clean, err)
	}
	return PublicURL(b.baseURL, clean), nil
}

// Handler serves stored objects read-only. cmd/server mounts it when media
// is stored locally so the returned URLs resolve.
func (b *FSBackend) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(b.fs)).Dir("/"))
}

// Open returns a stored object.
func (b *FSBackend) Open(objectPath string) (afero.File, error) {
	clean, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	return b.fs.Open(filepath.FromSlash(clean))
}
