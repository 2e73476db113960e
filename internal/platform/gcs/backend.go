package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	mediastorage "github.com/tarikstafford/reve-app-sub000/internal/storage"
)

// Config configures a Backend.
type Config struct {
	Bucket string
	// PublicBaseURL defaults to https://storage.googleapis.com/{bucket}.
	PublicBaseURL string
	// CredentialsFile is optional; application default credentials are used otherwise.
	CredentialsFile string
}

// objectWriterFunc opens a writer for one object.
type objectWriterFunc func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// Backend writes media objects into a GCS bucket.
type Backend struct {
	bucket     string
	publicBase string
	newWriter  objectWriterFunc
	close      func() error
}

var _ mediastorage.Backend = (*Backend)(nil)

// New creates a GCS backend. Close releases the underlying client.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	b := newBackend(cfg, func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		w.CacheControl = "public, max-age=3600"
		return w
	})
	b.close = client.Close
	return b, nil
}

func newBackend(cfg Config, newWriter objectWriterFunc) *Backend {
	public := cfg.PublicBaseURL
	if public == "" {
		public = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &Backend{
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(public, "/"),
		newWriter:  newWriter,
		close:      func() error { return nil },
	}
}

// Write implements storage.Backend. The object is committed on Close, so a
// failed copy leaves any previous object in place.
func (b *Backend) Write(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	clean, err := mediastorage.CleanPath(objectPath)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.newWriter(ctx, b.bucket, clean, contentType)
	if _, err := io.Copy(w, r); err != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", b.bucket, clean, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("commit gs://%s/%s: %w", b.bucket, clean, err)
	}
	return mediastorage.PublicURL(b.publicBase, clean), nil
}

// Close releases the GCS client.
func (b *Backend) Close() error {
	return b.close()
}
