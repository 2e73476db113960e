package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseBackend writes objects through the Supabase Storage REST API
// into a public bucket.
type SupabaseBackend struct {
	baseURL    string
	serviceKey string
	bucket     string
	publicBase string
	http       *http.Client
}

var _ Backend = (*SupabaseBackend)(nil)

// SupabaseConfig configures a SupabaseBackend.
type SupabaseConfig struct {
	// URL is the project URL, e.g. https://abcd.supabase.co.
	URL        string
	ServiceKey string
	Bucket     string
	// PublicBaseURL overrides the default public object URL prefix.
	PublicBaseURL string
	HTTPClient    *http.Client
}

// NewSupabaseBackend creates a Supabase Storage backend.
func NewSupabaseBackend(cfg SupabaseConfig) (*SupabaseBackend, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase storage requires url, service key and bucket")
	}
	base := strings.TrimRight(cfg.URL, "/")
	public := cfg.PublicBaseURL
	if public == "" {
		public = base + "/storage/v1/object/public/" + cfg.Bucket
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &SupabaseBackend{
		baseURL:    base,
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		publicBase: public,
		http:       client,
	}, nil
}

// Write implements Backend. Existing objects are overwritten.
func (b *SupabaseBackend) Write(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	clean, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.baseURL, b.bucket, clean)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("apikey", b.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	req.Header.Set("Cache-Control", "max-age=3600")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", clean, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("upload %s: status %d: %s", clean, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return PublicURL(b.publicBase, clean), nil
}
