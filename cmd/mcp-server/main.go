// Package main runs the MCP server from the full configuration file, with
// PostgreSQL feedback storage and a shared Redis cache when configured.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pneumonia-risk-mcp-server/internal/config"
	"github.com/pneumonia-risk-mcp-server/internal/database"
	"github.com/pneumonia-risk-mcp-server/internal/logging"
	"github.com/pneumonia-risk-mcp-server/internal/mcp"
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

	// stdout carries the protocol on the stdio transport
	if cfg.MCP.TransportType == "stdio" && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
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

	server, err := mcp.NewServer(mcp.Dependencies{
		Service:      runtime.Service,
		Feedback:     store,
		ExportDir:    cfg.MCP.ExportDir,
		BatchWorkers: cfg.Server.BatchWorkers,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	logger.WithField("environment", cfg.Environment).Info("Starting Pneumonia Risk MCP Server...")
	if err := server.Run(ctx, cfg.MCP.TransportType, cfg.MCP.HTTPPort); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}
	logger.Info("Pneumonia Risk MCP Server stopped")
}
