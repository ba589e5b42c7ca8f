package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/scriptengine/internal/api/http"
	"github.com/GriffinCanCode/scriptengine/internal/api/middleware"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/config"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/tracing"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 15 * time.Second

// Deps are the collaborators the server routes to.
type Deps struct {
	Executor  apihttp.ScriptExecutor
	Readiness apihttp.ReadinessCheck
	Metrics   *monitoring.Metrics
	Tracer    *tracing.Tracer
}

// Server wraps the API listener and the optional monitoring listener.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	api     *http.Server
	monitor *http.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) (*Server, error) {
	if deps.Executor == nil {
		return nil, errors.New("server: executor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Monitoring.Enabled && deps.Metrics == nil {
		return nil, errors.New("server: monitoring is enabled but no metrics were provided")
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logger, deps)

	timeout := cfg.Server.ConnectionTimeout()
	s := &Server{
		config: cfg,
		logger: logger,
		router: router,
		api: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: timeout,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
			IdleTimeout:       timeout,
		},
	}

	if cfg.Monitoring.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", deps.Metrics.Handler())
		s.monitor = &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Monitoring.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	logger.Info("Server initialized",
		zap.String("addr", s.api.Addr),
		zap.Bool("monitoring", cfg.Monitoring.Enabled),
		zap.Bool("http_logging", cfg.HTTPLogging.Enabled),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return s, nil
}

// newRouter builds the gin engine with the middleware chain in order.
func newRouter(cfg *config.Config, logger *zap.Logger, deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.LogContext(logger))
	if deps.Tracer != nil {
		router.Use(tracing.HTTPMiddleware(deps.Tracer))
	}
	if cfg.Monitoring.Enabled {
		router.Use(monitoring.Middleware(deps.Metrics))
	}
	router.Use(middleware.Gzip())
	if cfg.HTTPLogging.Enabled {
		router.Use(middleware.HTTPLogging(middleware.HTTPLogConfig{
			Headers:       cfg.HTTPLogging.Headers,
			URIIgnore:     cfg.HTTPLogging.URIIgnore,
			HeadersIgnore: cfg.HTTPLogging.HeadersIgnore,
		}, logger))
	}
	if cfg.CORS.Enabled {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.CORS.Origins)))
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes()))

	router.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusNotFound, "", fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})

	apihttp.NewHandlers(deps.Executor, logger).
		WithReadiness(deps.Readiness).
		Register(router)
	return router
}

// Handler exposes the API router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled or a listener fails, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		s.logger.Info("Starting listener", zap.String("listener", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s listener: %w", name, err)
		}
	}

	go serve("api", s.api)
	if s.monitor != nil {
		go serve("monitoring", s.monitor)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.api.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("api listener: %w", err))
	}
	if s.monitor != nil {
		if err := s.monitor.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("monitoring listener: %w", err))
		}
	}
	return errors.Join(errs...)
}
