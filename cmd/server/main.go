package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alimgiray/ghmirror/internal/app"
	"github.com/alimgiray/ghmirror/internal/handlers"
	"github.com/alimgiray/ghmirror/internal/workers"
	"github.com/alimgiray/ghmirror/pkg/config"
	"github.com/alimgiray/ghmirror/pkg/database"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	logger.Configure(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize dependencies
	a, err := app.New(cfg, database.DB)
	if err != nil {
		logger.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize worker manager
	workerManager := workers.NewWorkerManager(a.Scheduler, cfg.Sync)

	router := handlers.SetupRouter(&handlers.Handlers{
		Health:   handlers.NewHealthHandler(workerManager),
		User:     handlers.NewUserHandler(a.Mirror, a.Contributions, a.Summary, a.Export),
		Target:   handlers.NewTargetHandler(a.Targets, a.Scheduler),
		NotFound: handlers.NewNotFoundHandler(),
	}, cfg.Server.APIToken)

	// Start workers
	if err := workerManager.StartAll(); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	_ = workerManager.StopAll()
	logger.Infof("Server stopped")
}
