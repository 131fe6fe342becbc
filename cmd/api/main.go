package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compliance-backend/internal/bootstrap"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if logger, err := telemetry.New(cfg.LogLevel); err == nil {
		telemetry.SetLogger(logger)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("bootstrap failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("starting API server", map[string]any{"addr": srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("server error", map[string]any{"error": err})
			os.Exit(1)
		}
	case <-ctx.Done():
		telemetry.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetry.Error("graceful shutdown failed", map[string]any{"error": err})
		}
	}
}
