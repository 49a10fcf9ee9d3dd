// Package server assembles the HTTP surface: middleware, the v1 routes,
// health, metrics and API docs.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "smart-audio/docs"
	"smart-audio/internal/api/middleware"
	"smart-audio/internal/api/v1/dto"
	v1routes "smart-audio/internal/api/v1/routes"
)

const healthTimeout = 5 * time.Second

type Config struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Environment  string
	// RecordStore names the record store backend reported by /health
	RecordStore string
}

// HealthCheck probes a dependency; a non-nil error makes /health answer 503.
type HealthCheck func(ctx context.Context) error

type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	health     HealthCheck
	logger     *slog.Logger
}

func NewServer(config Config, container *v1routes.ServiceContainer, health HealthCheck, logger *slog.Logger) *Server {
	gin.SetMode(ginMode(config.Environment))

	s := &Server{config: config, health: health, logger: logger}
	s.router = gin.New()
	s.router.Use(
		middleware.RequestID(),
		middleware.StructuredLogging(logger),
		middleware.ErrorHandler(logger),
		middleware.CORS(middleware.DefaultCORSConfig()),
	)

	s.router.GET("/", s.index)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	v1routes.RegisterRoutes(s.router, container)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func ginMode(environment string) string {
	switch environment {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	}
	return gin.DebugMode
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := dto.HealthResponse{Status: "healthy", Timestamp: time.Now().Unix(), RecordStore: s.config.RecordStore}
	status := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("record store unhealthy", "error", err)
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "smart-audio",
		"docs":    "/swagger/index.html",
		"routes":  []string{"/files", "/download", "/uploads", "/health", "/metrics"},
	})
}

// Start listens in the background. A listen failure is delivered on the
// returned channel, which is closed when the server stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
			errCh <- err
		}
	}()
	s.logger.Info("http server listening", "addr", s.httpServer.Addr, "environment", s.config.Environment)
	return errCh
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// Router exposes the handler for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
