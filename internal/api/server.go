package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/bioscout/bioscout/internal/api/middleware"
	"github.com/bioscout/bioscout/internal/app"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/observability"
)

// BasePath is the prefix of every API route.
const BasePath = "/api/v1"

// Server is the BioScout HTTP server.
type Server struct {
	config     *Config
	echo       *echo.Echo
	controller *Controller
	metrics    *observability.Metrics
	log        logger.Logger

	mu      sync.Mutex
	serving chan error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger overrides the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithConfig overrides the configuration derived from the application settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// New creates a server exposing a.
func New(a *app.App, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:  ConfigFromSettings(a.Settings),
		metrics: a.Metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s.controller = NewController(a.Service, a.Images, a.Settings.Observation.MaxUploadSize, s.log)

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", s.config.Listen),
		logger.Bool("rate_limit", s.config.RateLimit.Enabled),
		logger.Bool("metrics", s.metrics != nil))
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	if s.metrics != nil {
		s.echo.Use(middleware.NewRequestMetrics(s.metrics.HTTP))
	}
	s.echo.Use(middleware.NewRequestLoggerWithSkipper(s.log.Module("access"), func(c echo.Context) bool {
		return c.Path() == "/healthz" || c.Path() == "/metrics"
	}))

	security := middleware.DefaultSecurityConfig()
	if len(s.config.AllowedOrigins) > 0 {
		security.AllowedOrigins = s.config.AllowedOrigins
	}
	s.echo.Use(middleware.NewSecureHeaders(security))
	s.echo.Use(middleware.NewCORS(security))
	s.echo.Use(middleware.NewBodyLimit(s.config.BodyLimit))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.controller.Healthz)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	g := s.echo.Group(BasePath)
	g.GET("/observations", s.controller.ListObservations)
	g.POST("/observations", s.controller.SubmitObservation)
	g.GET("/images/:name", s.controller.ServeImage)

	var limited []echo.MiddlewareFunc
	if rl := s.config.RateLimit; rl.Enabled {
		var recorder middleware.RateLimitRecorder
		if s.metrics != nil {
			recorder = s.metrics.HTTP
		}
		limited = append(limited, middleware.NewRateLimiter(rl.RequestsPerMinute, rl.Burst, recorder))
	}
	g.POST("/identify", s.controller.Identify, limited...)
	g.POST("/ask", s.controller.Ask, limited...)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Address returns the configured listen address.
func (s *Server) Address() string { return s.config.Listen }

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Use Shutdown to stop the server and Wait to block on it.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serving != nil {
		return
	}
	s.serving = make(chan error, 1)

	go func() {
		err := s.startBlocking()
		if err != nil {
			s.log.Error("server error", logger.Error(err))
		}
		s.serving <- err
		close(s.serving)
	}()
	s.log.Info("HTTP server starting", logger.String("address", s.config.Listen))
}

// Wait blocks until the server stops and returns the serve error, if any.
func (s *Server) Wait() error {
	s.mu.Lock()
	serving := s.serving
	s.mu.Unlock()
	if serving == nil {
		return nil
	}
	return <-serving
}

func (s *Server) startBlocking() error {
	err := s.echo.Start(s.config.Listen)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting at most ShutdownTimeout for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("server shutdown complete")
	return nil
}
