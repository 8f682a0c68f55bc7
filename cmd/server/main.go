package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vexlio/streambridge/internal/api"
	"github.com/vexlio/streambridge/internal/api/handler"
	"github.com/vexlio/streambridge/internal/config"
	"github.com/vexlio/streambridge/internal/downloader"
	"github.com/vexlio/streambridge/internal/repository"
	"github.com/vexlio/streambridge/internal/resolver"
	"github.com/vexlio/streambridge/internal/service"
	"github.com/vexlio/streambridge/internal/worker"
	"github.com/vexlio/streambridge/pkg/gemini"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("streambridge %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streambridge",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	if err := os.MkdirAll(cfg.Storage.BasePath, 0755); err != nil {
		logger.Error("failed to create storage directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		logger.Error("failed to create database directory", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	jobRepo, err := repository.NewSQLiteJobRepository(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open job database", "error", err)
		os.Exit(1)
	}
	defer jobRepo.Close()

	geminiClient, err := gemini.NewClient(context.Background(), cfg.Gemini)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	dl := downloader.NewHTTPDownloader(cfg.Download, logger)

	// Initialize services
	metaResolver := resolver.New(geminiClient, cfg.Resolve.Timeout, logger)
	downloadSvc := service.NewDownloadService(
		jobRepo,
		dl,
		cfg.Storage,
		cfg.Download,
		logger,
	)

	// Initialize handlers
	resolveHandler := handler.NewResolveHandler(metaResolver, logger)
	downloadHandler := handler.NewDownloadHandler(downloadSvc, logger)
	healthHandler := handler.NewHealthHandler(jobRepo)
	uiHandler := handler.NewUIHandler()

	// Setup router
	router := api.NewRouter(resolveHandler, downloadHandler, healthHandler, uiHandler)

	// Initialize worker pool
	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		downloadSvc,
		logger,
	)

	// Start worker pool
	pool.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight jobs to complete)
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
