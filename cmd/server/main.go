package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
	"github.com/tendant/upload-relay/pkg/uploadrelay/api"
	"github.com/tendant/upload-relay/pkg/uploadrelay/config"
	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	svc, signer, err := cfg.BuildService()
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(svc, signer, cfg),
	}

	go func() {
		slog.Info("upload relay starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database", cfg.DatabaseType,
			"storage", cfg.Storage.Type)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exiting")
}

func routes(svc uploadrelay.Service, signer *signature.Signer, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"status":      "healthy",
			"environment": cfg.Environment,
			"storage":     cfg.Storage.Type,
		})
	})

	// Byte ingest: signed-URL gated upload targets plus the open poll route
	r.Mount("/ingest", api.NewIngestHandler(svc, signer).Routes())

	// Management API: API-key gated
	r.Mount("/api", api.NewFilesHandler(svc, cfg.Secret).Routes())

	// Read path: public files open, private files signature gated
	r.Mount("/f", api.NewCDNHandler(svc, signer).Routes())

	return r
}
