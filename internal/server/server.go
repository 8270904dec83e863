// Package server assembles the HTTP surface: routing, middleware and
// lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/config"
	"github.com/SanathAishu/clinic-administration-sub006/internal/handlers"
	"github.com/SanathAishu/clinic-administration-sub006/internal/metrics"
)

// Server wraps the HTTP server and its router
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// New builds the router with middleware, mounts the API and the
// operational endpoints, and returns an unstarted server
func New(cfg *config.Config, handler *handlers.Handler, collector *metrics.Collector, logger *zap.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if cfg.Monitoring.EnableMetrics {
		router.Use(collector.HTTPMiddleware())
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(collector.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC()})
	})

	handler.RegisterRoutes(router)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		router: router,
		logger: logger,
	}
}

// Router exposes the underlying gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving and blocks until the listener closes
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs each request with latency and status
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
