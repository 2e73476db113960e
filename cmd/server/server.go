package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tarikstafford/reve-app-sub000/internal/app"
)

// shutdownTimeout bounds graceful shutdown. In-flight cycles that outlive it
// are abandoned; the stuck-task sweep reclaims them.
const shutdownTimeout = 30 * time.Second

// startHTTPServer starts the workers and the HTTP server and blocks until
// ctx is canceled or the server fails, then shuts both down.
func startHTTPServer(ctx context.Context, a *app.Application, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.Runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("starting server", slog.Int("port", a.Config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down server")
	case err := <-serverErr:
		if err != nil {
			a.Logger.Error("server failed", slog.String("error", err.Error()))
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
		if runErr == nil {
			runErr = fmt.Errorf("server shutdown failed: %w", err)
		}
	}
	a.Runner.Stop()

	a.Logger.Info("server shutdown completed")
	return runErr
}
