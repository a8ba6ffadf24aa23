// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/tpa-claims/internal/application/service"
	"github.com/garyjia/tpa-claims/internal/metrics"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	MetricsPath     string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  20 << 20,
		MetricsPath:     "/metrics",
	}
}

// HealthCheck reports whether a backing component is usable
type HealthCheck func(ctx context.Context) error

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	claims     service.ClaimService
	registry   service.RegistryService
	metrics    *metrics.Metrics
	health     HealthCheck
	logger     Logger
}

// ServerOption configures optional server collaborators
type ServerOption func(*Server)

// WithMetrics records request metrics and serves them at config.MetricsPath
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthCheck makes /health report the result of check
func WithHealthCheck(check HealthCheck) ServerOption {
	return func(s *Server) {
		s.health = check
	}
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	claims service.ClaimService,
	registry service.RegistryService,
	logger Logger,
	opts ...ServerOption,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		claims:   claims,
		registry: registry,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware logs every request and records its metrics
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.metrics.RecordRequest(method, c.FullPath(), status, latency)

		keysAndValues := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		}
		if actor, ok := c.Get(actorKey); ok {
			keysAndValues = append(keysAndValues, "actor_id", actor)
		}

		if status >= http.StatusInternalServerError {
			s.logger.Error("HTTP request", keysAndValues...)
		} else {
			s.logger.Info("HTTP request", keysAndValues...)
		}
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	claims := NewClaimHandlers(s.claims, s.metrics, s.config.MaxUploadBytes, s.logger)
	registry := NewRegistryHandlers(s.registry, s.logger)

	s.router.GET("/health", s.healthHandler)
	if s.metrics != nil && s.config.MetricsPath != "" {
		s.router.GET(s.config.MetricsPath, gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	api.Use(actorMiddleware(s.registry))
	{
		api.POST("/users", registry.CreateUser)
		api.GET("/document-types", registry.ListDocumentTypes)

		api.POST("/employees", registry.CreateEmployee)
		api.GET("/employees/:id", registry.GetEmployee)

		api.POST("/invoices", registry.CreateInvoice)
		api.GET("/invoices/:id", registry.GetInvoice)

		api.GET("/claims/statuses", claims.ListStatuses)
		api.POST("/claims", claims.CreateClaim)
		api.GET("/claims/:id", claims.GetClaim)
		api.GET("/claims/:id/next-statuses", claims.ListNextStatuses)
		api.POST("/claims/:id/transition", claims.TransitionClaim)
		api.POST("/claims/:id/notes", claims.AddNote)
		api.POST("/claims/:id/attachments", claims.AddAttachment)
		api.GET("/claims/:id/settlement", claims.ExportSettlement)
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) healthHandler(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: resp, Error: "unhealthy"})
			return
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
