package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/gateway"
	"github.com/techpathlabs/milestonedesk/handler"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
	"github.com/techpathlabs/milestonedesk/service"
)

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	return cmd
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.Info("configuration loaded successfully", "mode", cfg.Sync.Mode, "delete_mode", cfg.Sync.DeleteMode)

	artifacts, err := newArtifactStore(cfg)
	if err != nil {
		return err
	}

	client := gateway.NewClient(&cfg.Gateway)
	store := service.NewSessionStore(&cfg.Sync, service.NewEngineFactory(cfg, client, artifacts), artifacts)
	defer store.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(cfg, store),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.Gateway.Timeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited gracefully")
	return nil
}

// newArtifactStore returns the MINIO store when an endpoint is configured
// and an in-memory store otherwise.
func newArtifactStore(cfg *config.Config) (service.ArtifactStore, error) {
	if !cfg.Minio.Enabled() {
		slog.Info("minio not configured, keeping exports in memory")
		return service.NewMemoryArtifactStore(), nil
	}

	store, err := service.NewMinioArtifactStore(&cfg.Minio)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MINIO store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure MINIO bucket: %w", err)
	}
	slog.Info("exports stored in minio", "endpoint", cfg.Minio.Endpoint, "bucket", cfg.Minio.Bucket)
	return store, nil
}
