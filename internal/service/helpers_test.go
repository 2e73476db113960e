package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
	"github.com/tarikstafford/reve-app-sub000/internal/testdb"
)

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

type recordingScanner struct {
	seen [][]*domain.Entity
}

func (s *recordingScanner) Scan(_ context.Context, list []*domain.Entity) []*domain.Entity {
	s.seen = append(s.seen, list)
	return list
}

type stores struct {
	db       *sql.DB
	entities *postgres.PostgresEntityStore
	queue    *postgres.PostgresQueueStore
}

func newStores(t *testing.T) *stores {
	t.Helper()
	db := testdb.Open(t)
	log := testdb.DiscardLogger()
	return &stores{
		db:       db,
		entities: postgres.NewPostgresEntityStore(db, log),
		queue:    postgres.NewPostgresQueueStore(db, log),
	}
}

// seed creates an entity with its queue task directly through the stores.
func (s *stores) seed(t *testing.T, entityType domain.EntityType) (*domain.Entity, *domain.QueueTask) {
	t.Helper()
	ctx := context.Background()
	e, err := domain.NewEntity(entityType, uuid.New(), "Seeded", "")
	require.NoError(t, err)
	qt, err := domain.NewQueueTask(e, domain.MediaPrompts{ImagePrompt: "a lighthouse", VideoPrompt: "waves", AspectRatio: "16:9"})
	require.NoError(t, err)
	require.NoError(t, s.entities.Create(ctx, e))
	require.NoError(t, s.queue.Create(ctx, qt))
	return e, qt
}
