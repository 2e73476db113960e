package task_test

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/generation"
	"github.com/tarikstafford/reve-app-sub000/internal/mocks"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
	"github.com/tarikstafford/reve-app-sub000/internal/storage"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
	"github.com/tarikstafford/reve-app-sub000/internal/testdb"
)

const publicBase = "https://media.example"

// fixture wires a real SQLite-backed queue to mock providers, a fake media
// host and an in-memory storage backend.
type fixture struct {
	db         *sql.DB
	queue      *postgres.PostgresQueueStore
	entities   *postgres.PostgresEntityStore
	image      *mocks.MockProvider
	storyboard *mocks.MockProvider
	legacy     *mocks.MockProvider
	backend    *storage.FSBackend
	reconciler *task.Reconciler
	orch       *task.Orchestrator
	notifier   *countingNotifier
	mediaURL   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := testdb.DiscardLogger()
	db := testdb.Open(t)

	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image.png":
			_, _ = io.WriteString(w, "PNG")
		case "/video.mp4":
			_, _ = io.WriteString(w, "STORYBOARD-MP4")
		case "/veo.mp4":
			_, _ = io.WriteString(w, "VEO-MP4")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(media.Close)

	f := &fixture{
		db:         db,
		queue:      postgres.NewPostgresQueueStore(db, log),
		entities:   postgres.NewPostgresEntityStore(db, log),
		image:      mocks.NewMockProvider("image", media.URL+"/image.png"),
		storyboard: mocks.NewMockProvider("storyboard", media.URL+"/video.mp4"),
		legacy:     mocks.NewMockProvider("veo3", media.URL+"/veo.mp4"),
		backend:    storage.NewFSBackend(afero.NewMemMapFs(), publicBase),
		notifier:   &countingNotifier{},
		mediaURL:   media.URL,
	}

	gen, err := generation.NewClient(f.image, f.storyboard, f.legacy, generation.ClientConfig{
		ImagePoll: generation.PollConfig{Interval: time.Millisecond, MaxAttempts: 3},
		VideoPoll: generation.PollConfig{Interval: time.Millisecond, MaxAttempts: 3},
	}, log)
	require.NoError(t, err)

	f.reconciler = task.NewReconciler(
		f.queue, gen, storage.NewUploader(f.backend, log),
		task.NewSequentialFinalizer(f.entities, f.queue), log)
	f.orch = task.NewOrchestrator(f.queue, f.entities, f.reconciler, f.notifier, task.DefaultOrchestratorConfig(), log)
	return f
}

func storyboardPrompts() domain.MediaPrompts {
	return domain.MediaPrompts{
		ImagePrompt:      "a lighthouse in fog",
		VideoPromptParts: [3]string{"shot one", "shot two", "shot three"},
		AspectRatio:      "9:16",
	}
}

func legacyPrompts() domain.MediaPrompts {
	return domain.MediaPrompts{
		ImagePrompt: "a garden at dawn",
		VideoPrompt: "slow pan across the garden",
		AspectRatio: "16:9",
	}
}

// enqueue stores an entity and its pending task.
func (f *fixture) enqueue(t *testing.T, entityType domain.EntityType, prompts domain.MediaPrompts) (*domain.Entity, *domain.QueueTask) {
	t.Helper()
	ctx := context.Background()

	entity, err := domain.NewEntity(entityType, uuid.New(), "An entity", "")
	require.NoError(t, err)
	require.NoError(t, f.entities.Create(ctx, entity))

	qt, err := domain.NewQueueTask(entity, prompts)
	require.NoError(t, err)
	require.NoError(t, f.queue.Create(ctx, qt))

	// Keep FIFO order stable for tasks created in the same instant.
	time.Sleep(2 * time.Millisecond)
	return entity, qt
}

func (f *fixture) task(t *testing.T, id uuid.UUID) *domain.QueueTask {
	t.Helper()
	got, err := f.queue.GetByID(context.Background(), id)
	require.NoError(t, err)
	return got
}

func (f *fixture) entity(t *testing.T, e *domain.Entity) *domain.Entity {
	t.Helper()
	got, err := f.entities.GetByID(context.Background(), e.Type, e.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) object(t *testing.T, path string) string {
	t.Helper()
	file, err := f.backend.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) backdate(t *testing.T, id uuid.UUID, age time.Duration) {
	t.Helper()
	_, err := f.db.Exec(`UPDATE queue_tasks SET updated_at = $1 WHERE id = $2`, time.Now().UTC().Add(-age), id)
	require.NoError(t, err)
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
	err   error
}

func (n *countingNotifier) Notify(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return n.err
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}
