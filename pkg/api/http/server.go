package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/internal/application/orchestrator"
	"github.com/smithcommajoseph/async-transport/internal/application/workers"
)

// HealthChecker reports the health of a dependency
type HealthChecker interface {
	GetStatus() *workers.HealthStatus
}

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	orchestrator *orchestrator.Manager
	workers      HealthChecker
	logger       *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr         string
	Orchestrator *orchestrator.Manager
	// Gatherer serves /metrics; nil falls back to the default registry.
	Gatherer prometheus.Gatherer
	// Workers is optional; without it the health check skips the pool.
	Workers HealthChecker
	Logger  *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:       router,
		orchestrator: cfg.Orchestrator,
		workers:      cfg.Workers,
		logger:       cfg.Logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/health", s.handleHealth)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invocations", s.handleSubmit)
		v1.GET("/invocations", s.handleList)
		v1.GET("/invocations/:id", s.handleGet)
		v1.GET("/invocations/:id/result", s.handleGetResult)
		v1.POST("/invocations/:id/cancel", s.handleCancel)

		v1.GET("/workers", s.handleWorkers)
	}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetupWebSocket adds the invocation event stream to the server
func (s *Server) SetupWebSocket(handler gin.HandlerFunc) {
	s.router.GET("/api/v1/invocations/:id/ws", handler)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
