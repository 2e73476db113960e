package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/api/shared"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEntityService records the last create call and returns canned results.
type fakeEntityService struct {
	created   *service.CreateEntityParams
	createErr error
	list      []*domain.Entity
	listErr   error
	listArgs  [2]int
	get       *domain.Entity
	getErr    error
}

func (f *fakeEntityService) CreateEntity(
	_ context.Context,
	params service.CreateEntityParams,
) (*domain.Entity, *domain.QueueTask, error) {
	f.created = &params
	if f.createErr != nil {
		return nil, nil, f.createErr
	}
	e, err := domain.NewEntity(params.Type, params.UserID, params.Title, params.Content)
	if err != nil {
		return nil, nil, err
	}
	qt, err := domain.NewQueueTask(e, params.Prompts)
	if err != nil {
		return nil, nil, err
	}
	return e, qt, nil
}

func (f *fakeEntityService) ListEntities(
	_ context.Context,
	_ domain.EntityType,
	_ uuid.UUID,
	limit, offset int,
) ([]*domain.Entity, error) {
	f.listArgs = [2]int{limit, offset}
	return f.list, f.listErr
}

func (f *fakeEntityService) GetEntity(context.Context, domain.EntityType, uuid.UUID, uuid.UUID) (*domain.Entity, error) {
	return f.get, f.getErr
}

type fakeCycles struct {
	result task.CycleResult
	err    error
	calls  int
}

func (f *fakeCycles) RunCycle(context.Context) (task.CycleResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeQueueService struct {
	stats    service.QueueStats
	tasks    []*domain.QueueTask
	filter   store.TaskFilter
	retried  *domain.QueueTask
	retryErr error
}

func (f *fakeQueueService) Stats(context.Context) (service.QueueStats, error) {
	return f.stats, nil
}

func (f *fakeQueueService) ListTasks(_ context.Context, filter store.TaskFilter) ([]*domain.QueueTask, error) {
	f.filter = filter
	return f.tasks, nil
}

func (f *fakeQueueService) RetryFailed(context.Context, uuid.UUID) (*domain.QueueTask, error) {
	return f.retried, f.retryErr
}

// serve routes a single request through chi so URL params resolve.
func serve(method, pattern, target string, body string, userID uuid.UUID, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != uuid.Nil {
		req = req.WithContext(shared.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

var errBoom = errors.New("connection reset by peer")

func newTask(t *testing.T) *domain.QueueTask {
	t.Helper()
	e, err := domain.NewEntity(domain.EntityTypeDream, uuid.New(), "Dream", "")
	if err != nil {
		t.Fatal(err)
	}
	qt, err := domain.NewQueueTask(e, domain.MediaPrompts{ImagePrompt: "p", VideoPrompt: "v"})
	if err != nil {
		t.Fatal(err)
	}
	qt.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return qt
}
