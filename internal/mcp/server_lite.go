package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	litecfg "github.com/pneumonia-risk-mcp-server/internal/config"
	"github.com/pneumonia-risk-mcp-server/internal/database"
	"github.com/pneumonia-risk-mcp-server/internal/feedback"
	"github.com/pneumonia-risk-mcp-server/internal/logging"
	"github.com/pneumonia-risk-mcp-server/internal/service"
)

// LiteServer is a standalone MCP server. It needs no external services:
// posteriors are cached in memory and feedback goes to a local SQLite file.
type LiteServer struct {
	config        *litecfg.LiteConfig
	server        *Server
	runtime       *service.Runtime
	feedbackStore feedback.Store
	logger        *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithFeedbackStore sets a custom feedback store.
func WithFeedbackStore(store feedback.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.feedbackStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new standalone MCP server instance.
func NewLiteServer(ctx context.Context, cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	runtime, err := service.NewFromConfig(ctx, service.Settings{
		Calibration: cfg.CalibrationConfig(),
		Cache:       cfg.CacheConfig(),
		Imaging:     cfg.ImagingConfig(),
	}, server.logger)
	if err != nil {
		return nil, err
	}
	server.runtime = runtime

	if server.feedbackStore == nil {
		store, err := database.OpenFeedbackStore(ctx, cfg.DatabaseConfig(), server.logger)
		if err != nil {
			runtime.Close()
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	server.server, err = NewServer(Dependencies{
		Service:      runtime.Service,
		Feedback:     server.feedbackStore,
		ExportDir:    cfg.ExportDir(),
		BatchWorkers: cfg.BatchWorkers,
	}, server.logger)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// Start serves MCP on the configured transport until ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting Pneumonia Risk MCP Server (Lite)...")
	return s.server.Run(ctx, s.config.Transport, s.config.HTTPPort)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
		}
	}
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close cache")
		}
	}
	return nil
}

// Server returns the tool server.
func (s *LiteServer) Server() *Server {
	return s.server
}

// GetFeedbackStore returns the feedback store for external access.
func (s *LiteServer) GetFeedbackStore() feedback.Store {
	return s.feedbackStore
}
