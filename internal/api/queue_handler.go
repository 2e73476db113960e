package api

import (
	"log/slog"
	"net/http"

	"github.com/tarikstafford/reve-app-sub000/internal/api/shared"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/redact"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

// QueueHandler serves the queue trigger and operator endpoints.
type QueueHandler struct {
	cycles task.CycleRunner
	queue  service.QueueService
	logger *slog.Logger
}

// NewQueueHandler creates a QueueHandler.
func NewQueueHandler(cycles task.CycleRunner, queue service.QueueService, logger *slog.Logger) *QueueHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for QueueHandler")
	}
	return &QueueHandler{
		cycles: cycles,
		queue:  queue,
		logger: logger.With(slog.String("component", "queue_handler")),
	}
}

// Process runs one processing cycle. It backs both the scheduled
// (GET /api/cron/process-queue) and manual (POST /api/queue/process)
// triggers. A failed cycle answers 500 with the recorded, redacted error.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	result, err := h.cycles.RunCycle(r.Context())
	if err != nil {
		resp := ProcessQueueResponse{Success: false, Error: "Queue processing failed"}
		if result.Processed() {
			resp.TaskID = result.TaskID.String()
			resp.ImageURL = result.ImageURL
			resp.Error = result.Message
		}
		log.Error("queue cycle failed",
			slog.String("outcome", string(result.Outcome)),
			slog.String("error", redact.Error(err)))
		shared.RespondWithJSON(w, r, http.StatusInternalServerError, resp)
		return
	}

	log.Info("queue cycle finished", slog.String("outcome", string(result.Outcome)))
	shared.RespondWithJSON(w, r, http.StatusOK, cycleToResponse(result))
}

// Stats handles GET /api/queue/stats.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load queue stats")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, QueueStatsResponse{QueueStats: stats, Total: stats.Total()})
}

// ListTasks handles GET /api/queue/tasks?status=&entity_type=&limit=&offset=.
func (h *QueueHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := getPagination(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	filter := store.TaskFilter{
		Status: domain.TaskStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("entity_type"); raw != "" {
		if filter.EntityType, err = domain.ParseEntityType(raw); err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
	}

	tasks, err := h.queue.ListTasks(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list queue tasks")
		return
	}
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Retry handles POST /api/queue/tasks/{id}/retry.
func (h *QueueHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	qt, err := h.queue.RetryFailed(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retry task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(qt))
}
