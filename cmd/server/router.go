package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tarikstafford/reve-app-sub000/internal/api"
	apiMiddleware "github.com/tarikstafford/reve-app-sub000/internal/api/middleware"
	"github.com/tarikstafford/reve-app-sub000/internal/app"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/telemetry"
)

// setupRouter creates the router with all routes and middleware.
func setupRouter(a *app.Application) (http.Handler, error) {
	validator, err := apiMiddleware.NewJWTValidator(a.Config.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}
	authMiddleware := apiMiddleware.NewAuthMiddleware(validator)
	requireCronSecret := apiMiddleware.RequireSecret(a.Config.Auth.CronSecret)

	dreamHandler := api.NewEntityHandler(domain.EntityTypeDream, a.EntityService, a.Logger)
	manifestationHandler := api.NewEntityHandler(domain.EntityTypeManifestation, a.EntityService, a.Logger)
	queueHandler := api.NewQueueHandler(a.Orchestrator, a.QueueService, a.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(a.Logger))
	r.Use(apiMiddleware.Metrics)

	r.Route("/api", func(r chi.Router) {
		// Queue triggers and operator endpoints
		r.Group(func(r chi.Router) {
			r.Use(requireCronSecret)
			r.Get("/cron/process-queue", queueHandler.Process)
			r.Post("/queue/process", queueHandler.Process)
			r.Get("/queue/stats", queueHandler.Stats)
			r.Get("/queue/tasks", queueHandler.ListTasks)
			r.Post("/queue/tasks/{id}/retry", queueHandler.Retry)
		})

		// User endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			mountEntityRoutes(r, "/dreams", dreamHandler)
			mountEntityRoutes(r, "/manifestations", manifestationHandler)
		})
	})

	if a.LocalMedia != nil {
		r.Handle("/media/*", http.StripPrefix("/media", a.LocalMedia.Handler()))
	}

	r.Handle("/metrics", telemetry.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			a.Logger.Error("failed to write health check response", "error", err)
		}
	})

	return r, nil
}

func mountEntityRoutes(r chi.Router, prefix string, h *api.EntityHandler) {
	r.Route(prefix, func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
}
