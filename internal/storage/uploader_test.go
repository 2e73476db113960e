package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = io.WriteString(w, "PNGDATA")
		case "/video.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = io.WriteString(w, "MP4DATA-MP4DATA")
		case "/empty":
			w.WriteHeader(http.StatusOK)
		case "/empty-stream":
			// Flushing before any write forces a chunked response with no
			// declared length.
			w.(http.Flusher).Flush()
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readObject(t *testing.T, b *storage.FSBackend, p string) string {
	t.Helper()
	f, err := b.Open(p)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func TestUploader_StoresMediaAtDeterministicPath(t *testing.T) {
	t.Parallel()

	src := mediaServer(t)
	backend := storage.NewFSBackend(afero.NewMemMapFs(), "https://media.example/")
	uploader := storage.NewUploader(backend, discardLogger())

	userID, entityID := uuid.New(), uuid.New()
	imagePath := domain.MediaPath(domain.EntityTypeDream, userID, entityID, domain.MediaKindImage)
	videoPath := domain.MediaPath(domain.EntityTypeDream, userID, entityID, domain.MediaKindVideo)

	imageURL, err := uploader.DownloadAndUploadToStorage(context.Background(), src.URL+"/image.png?token=abc", imagePath)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/dreams/"+userID.String()+"/"+entityID.String()+"/image.png", imageURL)
	assert.Equal(t, "PNGDATA", readObject(t, backend, imagePath))

	videoURL, err := uploader.DownloadAndUploadToStorage(context.Background(), src.URL+"/video.mp4", videoPath)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/dreams/"+userID.String()+"/"+entityID.String()+"/video.mp4", videoURL)
	assert.Equal(t, "MP4DATA-MP4DATA", readObject(t, backend, videoPath))
}

func TestUploader_Overwrites(t *testing.T) {
	t.Parallel()

	src := mediaServer(t)
	backend := storage.NewFSBackend(afero.NewMemMapFs(), "https://media.example")
	uploader := storage.NewUploader(backend, discardLogger())

	_, err := uploader.DownloadAndUploadToStorage(context.Background(), src.URL+"/video.mp4", "dreams/u/e/image.png")
	require.NoError(t, err)
	_, err = uploader.DownloadAndUploadToStorage(context.Background(), src.URL+"/image.png", "dreams/u/e/image.png")
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", readObject(t, backend, "dreams/u/e/image.png"))
}

func TestUploader_Failures(t *testing.T) {
	t.Parallel()

	src := mediaServer(t)
	ctx := context.Background()

	t.Run("source error status", func(t *testing.T) {
		t.Parallel()
		uploader := storage.NewUploader(storage.NewFSBackend(afero.NewMemMapFs(), "x"), discardLogger())
		_, err := uploader.DownloadAndUploadToStorage(ctx, src.URL+"/missing?sig=secret", "dreams/u/e/image.png")
		assert.ErrorIs(t, err, storage.ErrDownloadFailed)
		assert.NotContains(t, err.Error(), "sig=secret")
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		uploader := storage.NewUploader(storage.NewFSBackend(afero.NewMemMapFs(), "x"), discardLogger())
		_, err := uploader.DownloadAndUploadToStorage(ctx, src.URL+"/empty", "dreams/u/e/image.png")
		assert.ErrorIs(t, err, storage.ErrDownloadFailed)
	})

	t.Run("empty download keeps stored media", func(t *testing.T) {
		t.Parallel()
		backend := storage.NewFSBackend(afero.NewMemMapFs(), "x")
		uploader := storage.NewUploader(backend, discardLogger())
		_, err := uploader.DownloadAndUploadToStorage(ctx, src.URL+"/image.png", "dreams/u/e/image.png")
		require.NoError(t, err)

		for _, source := range []string{"/empty", "/empty-stream"} {
			_, err = uploader.DownloadAndUploadToStorage(ctx, src.URL+source, "dreams/u/e/image.png")
			assert.ErrorIs(t, err, storage.ErrDownloadFailed, source)
			assert.Equal(t, "PNGDATA", readObject(t, backend, "dreams/u/e/image.png"), source)
		}
	})

	t.Run("unreachable source", func(t *testing.T) {
		t.Parallel()
		uploader := storage.NewUploader(storage.NewFSBackend(afero.NewMemMapFs(), "x"), discardLogger())
		_, err := uploader.DownloadAndUploadToStorage(ctx, "http://127.0.0.1:1/x.png?key=k", "dreams/u/e/image.png")
		assert.ErrorIs(t, err, storage.ErrDownloadFailed)
		assert.NotContains(t, err.Error(), "key=k")
	})

	t.Run("backend rejects write", func(t *testing.T) {
		t.Parallel()
		ro := storage.NewFSBackend(afero.NewReadOnlyFs(afero.NewMemMapFs()), "x")
		uploader := storage.NewUploader(ro, discardLogger())
		_, err := uploader.DownloadAndUploadToStorage(ctx, src.URL+"/image.png", "dreams/u/e/image.png")
		assert.ErrorIs(t, err, storage.ErrUploadFailed)
	})

	t.Run("invalid destination", func(t *testing.T) {
		t.Parallel()
		uploader := storage.NewUploader(storage.NewFSBackend(afero.NewMemMapFs(), "x"), discardLogger())
		for _, p := range []string{"", "/abs/image.png", "../escape.png", "dreams/../../x.png"} {
			_, err := uploader.DownloadAndUploadToStorage(ctx, src.URL+"/image.png", p)
			assert.ErrorIs(t, err, storage.ErrInvalidPath, p)
		}
	})
}

type recordingBackend struct {
	storage.Backend
	contentTypes map[string]string
}

func (b *recordingBackend) Write(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	b.contentTypes[objectPath] = contentType
	return b.Backend.Write(ctx, objectPath, r, contentType)
}

func TestUploader_ContentTypeFollowsDestination(t *testing.T) {
	t.Parallel()

	src := mediaServer(t)
	backend := &recordingBackend{
		Backend:      storage.NewFSBackend(afero.NewMemMapFs(), "x"),
		contentTypes: map[string]string{},
	}
	uploader := storage.NewUploader(backend, discardLogger())
	ctx := context.Background()

	// The source advertises video/mp4 but the destination is an image.
	_, err := uploader.DownloadAndUploadToStorage(ctx, src.URL+"/video.mp4", "dreams/u/e/image.png")
	require.NoError(t, err)
	_, err = uploader.DownloadAndUploadToStorage(ctx, src.URL+"/image.png", "dreams/u/e/video.mp4")
	require.NoError(t, err)
	_, err = uploader.DownloadAndUploadToStorage(ctx, src.URL+"/image.png", "dreams/u/e/raw")
	require.NoError(t, err)

	assert.Equal(t, domain.MediaKindImage.ContentType(), backend.contentTypes["dreams/u/e/image.png"])
	assert.Equal(t, domain.MediaKindVideo.ContentType(), backend.contentTypes["dreams/u/e/video.mp4"])
	assert.Equal(t, "image/png", backend.contentTypes["dreams/u/e/raw"], "falls back to the served type")
}

func TestCleanPath(t *testing.T) {
	t.Parallel()

	got, err := storage.CleanPath("dreams/u//e/./image.png")
	require.NoError(t, err)
	assert.Equal(t, "dreams/u/e/image.png", got)

	_, err = storage.CleanPath("..")
	assert.True(t, errors.Is(err, storage.ErrInvalidPath))
}

func TestSupabaseBackend_Write(t *testing.T) {
	t.Parallel()

	var (
		gotPath, gotAuth, gotKey, gotType, gotUpsert string
		gotBody                                      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"Key":"media/dreams/u/e/video.mp4"}`)
	}))
	t.Cleanup(srv.Close)

	b, err := storage.NewSupabaseBackend(storage.SupabaseConfig{
		URL:        srv.URL + "/",
		ServiceKey: "service-role-key",
		Bucket:     "media",
	})
	require.NoError(t, err)

	url, err := b.Write(context.Background(), "dreams/u/e/video.mp4", strings.NewReader("bytes"), "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/storage/v1/object/public/media/dreams/u/e/video.mp4", url)
	assert.Equal(t, "/storage/v1/object/media/dreams/u/e/video.mp4", gotPath)
	assert.Equal(t, "Bearer service-role-key", gotAuth)
	assert.Equal(t, "service-role-key", gotKey)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "bytes", string(gotBody))
}

func TestSupabaseBackend_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Bucket not found"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	b, err := storage.NewSupabaseBackend(storage.SupabaseConfig{URL: srv.URL, ServiceKey: "k", Bucket: "nope"})
	require.NoError(t, err)

	_, err = b.Write(context.Background(), "dreams/u/e/image.png", strings.NewReader("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket not found")

	_, err = storage.NewSupabaseBackend(storage.SupabaseConfig{URL: srv.URL})
	assert.Error(t, err)
}

func TestSupabaseBackend_PublicBaseOverride(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	b, err := storage.NewSupabaseBackend(storage.SupabaseConfig{
		URL: srv.URL, ServiceKey: "k", Bucket: "media", PublicBaseURL: "https://cdn.reve.example",
	})
	require.NoError(t, err)

	url, err := b.Write(context.Background(), "manifestations/u/e/image.png", strings.NewReader("x"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.reve.example/manifestations/u/e/image.png", url)
}
