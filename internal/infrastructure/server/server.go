package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/arch3d/internal/api/http"
	"github.com/GriffinCanCode/arch3d/internal/api/middleware"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/config"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/logging"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/tracing"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP status surface: health, stage progress and metrics.
type Server struct {
	router  *gin.Engine
	logger  *logging.Logger
	config  config.StatusConfig
	metrics *monitoring.Metrics
}

// New wires the status routes. source is usually a *pipeline.Runner;
// metrics, tracer and logger may be nil.
func New(cfg config.StatusConfig, source apihttp.StatusSource, metrics *monitoring.Metrics, tracer *tracing.Tracer, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics(nil)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	if tracer != nil {
		router.Use(tracing.HTTPMiddleware(tracer))
	}
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		MaxAge:       12 * time.Hour,
	}))
	router.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	handlers := apihttp.NewHandlers(source)

	router.GET("/healthz", handlers.Health)
	router.GET("/api/stages", handlers.Stages)
	router.GET("/api/stages/:stage", handlers.Stage)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Server{
		router:  router,
		logger:  logger.Named("status"),
		config:  cfg,
		metrics: metrics,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}
