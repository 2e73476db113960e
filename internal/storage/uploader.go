package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/redact"
	"github.com/tarikstafford/reve-app-sub000/internal/telemetry"
)

// Uploader copies provider-hosted media into a Backend.
type Uploader struct {
	backend Backend
	http    *http.Client
	logger  *slog.Logger
}

// UploaderOption customizes an Uploader.
type UploaderOption func(*Uploader)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) UploaderOption {
	return func(u *Uploader) { u.http = c }
}

// NewUploader creates an Uploader writing to backend.
func NewUploader(backend Backend, logger *slog.Logger, opts ...UploaderOption) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Uploader{
		backend: backend,
		// Videos can be large; the timeout covers the whole body.
		http:   &http.Client{Timeout: 5 * time.Minute},
		logger: logger.With(slog.String("component", "storage_uploader")),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// DownloadAndUploadToStorage fetches sourceURL and stores it at
// destinationPath, returning the durable public URL. It does not retry;
// failures are returned wrapped in ErrDownloadFailed or ErrUploadFailed.
func (u *Uploader) DownloadAndUploadToStorage(ctx context.Context, sourceURL, destinationPath string) (string, error) {
	log := logger.FromContextOrDefault(ctx, u.logger)
	kind := mediaKind(destinationPath)

	objectPath, err := CleanPath(destinationPath)
	if err != nil {
		return "", err
	}

	publicURL, size, err := u.copy(ctx, sourceURL, objectPath)
	telemetry.StorageUploads.WithLabelValues(kind, telemetry.Result(err)).Inc()
	if err != nil {
		log.Error("media re-upload failed",
			slog.String("source", redact.URL(sourceURL)),
			slog.String("path", objectPath),
			slog.String("error", err.Error()))
		return "", err
	}
	telemetry.StorageUploadBytes.WithLabelValues(kind).Add(float64(size))

	log.Info("media stored",
		slog.String("path", objectPath),
		slog.String("size", humanize.Bytes(uint64(size))),
		slog.String("url", publicURL))
	return publicURL, nil
}

func (u *Uploader) copy(ctx context.Context, sourceURL, objectPath string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	resp, err := u.http.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, query string included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", 0, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, redact.URL(sourceURL), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: %s: unexpected status %d", ErrDownloadFailed, redact.URL(sourceURL), resp.StatusCode)
	}

	// The destination path is fixed, so an empty download must be caught
	// before it overwrites whatever is stored there.
	if resp.ContentLength == 0 {
		return "", 0, fmt.Errorf("%w: %s: empty body", ErrDownloadFailed, redact.URL(sourceURL))
	}
	br := bufio.NewReader(resp.Body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return "", 0, fmt.Errorf("%w: %s: empty body", ErrDownloadFailed, redact.URL(sourceURL))
		}
		return "", 0, fmt.Errorf("%w: reading %s: %v", ErrDownloadFailed, redact.URL(sourceURL), err)
	}

	body := &countingReader{r: br}
	publicURL, err := u.backend.Write(ctx, objectPath, body, contentType(objectPath, resp.Header.Get("Content-Type")))
	if err != nil {
		if body.err != nil {
			return "", body.n, fmt.Errorf("%w: reading %s: %v", ErrDownloadFailed, redact.URL(sourceURL), body.err)
		}
		return "", body.n, fmt.Errorf("%w: %s: %v", ErrUploadFailed, objectPath, err)
	}
	return publicURL, body.n, nil
}

// countingReader records bytes read and the first non-EOF read error.
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && err != io.EOF && c.err == nil {
		c.err = err
	}
	return n, err
}

// contentType prefers the type implied by the destination extension.
func contentType(objectPath, served string) string {
	ext := strings.TrimPrefix(path.Ext(objectPath), ".")
	for _, kind := range []domain.MediaKind{domain.MediaKindImage, domain.MediaKindVideo} {
		if ext == kind.Extension() {
			return kind.ContentType()
		}
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" && ext != "" {
		return ct
	}
	if served != "" {
		return served
	}
	return "application/octet-stream"
}

func mediaKind(objectPath string) string {
	base := path.Base(objectPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
