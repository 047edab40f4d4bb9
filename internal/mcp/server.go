// Package mcp exposes the pneumonia risk assessment service as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/cache"
	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/feedback"
	"github.com/pneumonia-risk-mcp-server/internal/service"
)

const (
	// ServerName is reported to MCP clients during initialization.
	ServerName = "pneumonia-risk-mcp-server"
	// ServerVersion is reported to MCP clients during initialization.
	ServerVersion = "v1.0.0"

	recentAssessments   = 256
	recentAssessmentTTL = 24 * time.Hour
)

// Dependencies are the collaborators the tools call into. Symptom extraction
// comes from the service. Feedback may be nil, in which case the feedback
// tools are not registered.
type Dependencies struct {
	Service      *service.AssessmentService
	Feedback     feedback.Store
	ExportDir    string
	BatchWorkers int
}

// Server wraps an mcp.Server with the registered pneumonia risk tools.
type Server struct {
	mcpServer    *mcp.Server
	service      *service.AssessmentService
	feedback     feedback.Store
	exportDir    string
	batchWorkers int
	recent       *cache.MemoryCache
	handlers     map[string]toolFunc
	logger       *logrus.Logger
}

// toolFunc decodes raw arguments and returns a JSON-serializable result.
type toolFunc func(ctx context.Context, args json.RawMessage) (interface{}, error)

type toolDefinition struct {
	tool    *mcp.Tool
	handler toolFunc
}

// NewServer creates the MCP server and registers every tool.
func NewServer(deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("assessment service is required")
	}

	recent, err := cache.NewMemoryCache(recentAssessments, recentAssessmentTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment history: %w", err)
	}

	workers := deps.BatchWorkers
	if workers <= 0 {
		workers = service.DefaultBatchWorkers
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
		service:      deps.Service,
		feedback:     deps.Feedback,
		exportDir:    deps.ExportDir,
		batchWorkers: workers,
		recent:       recent,
		handlers:     make(map[string]toolFunc),
		logger:       logger,
	}

	definitions := s.assessmentTools()
	if s.feedback != nil {
		definitions = append(definitions, s.feedbackTools()...)
	}

	for _, def := range definitions {
		if err := s.register(def); err != nil {
			return nil, err
		}
	}

	s.logger.WithField("tool_count", len(s.handlers)).Info("Successfully registered all tools")
	return s, nil
}

func (s *Server) register(def toolDefinition) error {
	name := def.tool.Name
	if _, exists := s.handlers[name]; exists {
		return fmt.Errorf("tool %s is already registered", name)
	}
	if def.tool.InputSchema == nil {
		return fmt.Errorf("tool %s has no input schema", name)
	}

	s.handlers[name] = def.handler
	s.mcpServer.AddTool(def.tool, s.sdkHandler(name))

	s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
	return nil
}

// sdkHandler adapts a toolFunc to the SDK handler signature.
func (s *Server) sdkHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = rawArguments(req.Params.Arguments)
		}
		return s.CallTool(ctx, name, args), nil
	}
}

// CallTool runs a registered tool. Failures are reported in the result with
// IsError set rather than as protocol errors.
func (s *Server) CallTool(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	start := time.Now()
	logger := s.logger.WithField("tool", name)

	handler, ok := s.handlers[name]
	if !ok {
		return errorResult(domain.NewMCPError(domain.ErrInvalidInput, "unknown tool: "+name, "", ""))
	}

	logger.Debug("Tool invoked")
	result, err := handler(ctx, args)
	if err != nil {
		logger.WithError(err).WithField("code", domain.ErrorCode(err)).Warn("Tool call failed")
		return errorResult(err)
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.WithError(err).Error("Failed to encode tool result")
		return errorResult(err)
	}

	logger.WithField("duration", time.Since(start).String()).Info("Tool completed")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}
}

// ToolNames lists the registered tools, sorted.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run serves MCP over the named transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport string, port int) error {
	switch transport {
	case "", "stdio":
		s.logger.WithField("transport_type", "stdio").Info("Transport initialized")
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case "http":
		return s.runHTTP(ctx, port)
	default:
		return fmt.Errorf("unsupported transport type: %s", transport)
	}
}

func (s *Server) runHTTP(ctx context.Context, port int) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"transport_type": "http",
			"port":           port,
		}).Info("Transport initialized")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("MCP HTTP shutdown failed: %w", err)
	}
	return nil
}

// rawArguments recovers the JSON arguments of a tool call. Decoded requests
// carry a json.RawMessage; in-process callers may pass any marshalable value.
func rawArguments(arguments any) json.RawMessage {
	switch v := arguments.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return v
	case []byte:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return raw
	}
}

func errorResult(err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Error: %s - %v", code, err)},
		},
		IsError: true,
	}
}

// decodeArgs unmarshals tool arguments; empty arguments leave v untouched.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return domain.NewMCPError(domain.ErrInvalidInput, "invalid parameters", err.Error(), "")
	}
	return nil
}
