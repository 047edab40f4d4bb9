// Package api exposes the pneumonia risk assessment over a JSON REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/feedback"
	"github.com/pneumonia-risk-mcp-server/internal/middleware"
	"github.com/pneumonia-risk-mcp-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	config   domain.ServerConfig
	service  *service.AssessmentService
	feedback feedback.Store
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance. store may be nil, in which
// case the feedback routes answer 503.
func NewServer(cfg domain.ServerConfig, svc *service.AssessmentService, store feedback.Store, logger *logrus.Logger) *Server {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))
	router.Use(corsMiddleware())

	server := &Server{
		config:   cfg,
		service:  svc,
		feedback: store,
		logger:   logger,
		router:   router,
	}

	server.setupRoutes()

	return server
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("REST server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(middleware.RateLimit(s.config.RateLimit, s.config.RateBurst, s.rateLimited))
	}
	{
		v1.GET("/symptoms", s.handleListSymptoms)
		v1.GET("/profiles", s.handleListProfiles)
		v1.POST("/assessments", s.handleAssess)
		v1.POST("/assessments/batch", s.handleAssessBatch)
		v1.GET("/assessments", s.handleListAssessments)
		v1.GET("/assessments/:id", s.handleGetAssessment)
		v1.POST("/posterior", s.handlePosterior)
		v1.POST("/feedback", s.handleSubmitFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/export", s.handleExportFeedback)
		v1.DELETE("/feedback/:id", s.handleDeleteFeedback)
	}
}

func (s *Server) rateLimited(c *gin.Context) {
	s.writeError(c, domain.NewMCPError(domain.ErrRateLimit, "rate limit exceeded", "", ""))
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+middleware.CorrelationIDHeader)
		c.Header("Access-Control-Expose-Headers", middleware.CorrelationIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// statusFor maps a surface error code onto an HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.ErrInvalidInput, domain.ErrValidation, domain.ErrProfileNotFound:
		return http.StatusBadRequest
	case domain.ErrFeedbackNotFound, domain.ErrAssessmentGone:
		return http.StatusNotFound
	case domain.ErrInference:
		return http.StatusUnprocessableEntity
	case domain.ErrRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a domain.MCPError body.
func (s *Server) writeError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := statusFor(code)
	requestID := c.GetString(middleware.CorrelationIDKey)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
		message = "internal error"
	}

	c.AbortWithStatusJSON(status, domain.NewMCPError(code, message, "", requestID))
}

func (s *Server) badRequest(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)
	c.AbortWithStatusJSON(http.StatusBadRequest,
		domain.NewMCPError(domain.ErrInvalidInput, "malformed request body", err.Error(), requestID))
}
