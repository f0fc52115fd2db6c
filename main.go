package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soundgrid/config"
	"soundgrid/internal/grid/repository"
	"soundgrid/internal/grid/service"
	"soundgrid/pkg/logger"
	"soundgrid/router"
	"soundgrid/socket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	if !cfg.DotEnvLoaded {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg.StoreBackend, cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		logger.Sugar.Fatalf("Failed to create store (backend=%s): %v", cfg.StoreBackend, err)
	}
	defer repo.Close()

	hub := socket.NewHub()
	go hub.Run()
	defer hub.Stop()

	gridService := service.NewGridService(repo, hub)
	handler := router.Setup(gridService, hub, router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Grid store listening on %s (store=%s, data=%s)", cfg.Addr(), cfg.StoreBackend, cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}
