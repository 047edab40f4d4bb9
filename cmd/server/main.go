// Package main runs the pneumonia risk REST API server.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/pneumonia-risk-mcp-server/internal/api"
	"github.com/pneumonia-risk-mcp-server/internal/config"
	"github.com/pneumonia-risk-mcp-server/internal/database"
	"github.com/pneumonia-risk-mcp-server/internal/logging"
	"github.com/pneumonia-risk-mcp-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, closer, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := service.NewFromConfig(ctx, service.Settings{
		Calibration: cfg.Calibration,
		Cache:       cfg.Cache,
		Imaging:     cfg.Imaging,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize assessment service")
	}
	defer runtime.Close()

	store, err := database.OpenFeedbackStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	defer store.Close()

	history, err := database.OpenAssessmentStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open assessment history")
	}
	if history != nil {
		defer history.Close()
		runtime.Service.WithAssessmentStore(history)
	}

	if configManager.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(cfg.Server, runtime.Service, store, logger)
	logger.WithField("addr", cfg.Server.Host).WithField("port", cfg.Server.Port).Info("Starting Pneumonia Risk API server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}
	logger.Info("Server stopped")
}
