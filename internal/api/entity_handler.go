package api

import (
	"log/slog"
	"net/http"

	"github.com/tarikstafford/reve-app-sub000/internal/api/shared"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/service"
)

// EntityHandler serves the dream and manifestation endpoints. One handler
// instance is bound to one entity type.
type EntityHandler struct {
	entityType domain.EntityType
	service    service.EntityService
	logger     *slog.Logger
}

// NewEntityHandler creates an EntityHandler for entityType.
func NewEntityHandler(entityType domain.EntityType, svc service.EntityService, logger *slog.Logger) *EntityHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for EntityHandler")
	}
	return &EntityHandler{
		entityType: entityType,
		service:    svc,
		logger:     logger.With(slog.String("component", "entity_handler"), slog.String("entity_type", string(entityType))),
	}
}

// Create handles POST /api/{dreams|manifestations}. Media generation runs
// in the background, so the response is 202 Accepted.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateEntityRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entity, queueTask, err := h.service.CreateEntity(r.Context(), service.CreateEntityParams{
		Type:    h.entityType,
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Prompts: req.Prompts(),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create "+string(h.entityType))
		return
	}

	log.Debug("entity accepted for generation",
		slog.String("entity_id", entity.ID.String()),
		slog.String("task_id", queueTask.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateEntityResponse{
		Entity:    entityToResponse(entity),
		TaskID:    queueTask.ID.String(),
		VideoMode: string(queueTask.VideoMode),
	})
}

// List handles GET /api/{dreams|manifestations}. In-flight entities are
// reconciled before the page is returned.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}
	limit, offset, err := getPagination(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := h.service.ListEntities(r.Context(), h.entityType, userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list "+h.entityType.Plural())
		return
	}

	items := make([]EntityResponse, 0, len(list))
	for _, e := range list {
		items = append(items, entityToResponse(e))
	}
	if limit == 0 {
		limit = service.DefaultListLimit
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ListEntitiesResponse{Items: items, Limit: limit, Offset: offset})
}

// Get handles GET /api/{dreams|manifestations}/{id}.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entity, err := h.service.GetEntity(r.Context(), h.entityType, userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entityToResponse(entity))
}
