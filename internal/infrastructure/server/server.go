package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/infrastructure/config"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/horizon/internal/sysmodule"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// StatusSource reports the event loop state; *sysmodule.Manager is one.
type StatusSource interface {
	Status() sysmodule.Status
}

// StatusResponse is the body of /status and of each stream frame.
type StatusResponse struct {
	Manager sysmodule.Status     `json:"manager"`
	Metrics *monitoring.Snapshot `json:"metrics,omitempty"`
}

// Server is the diagnostics HTTP surface.
type Server struct {
	router  *gin.Engine
	cfg     config.DiagnosticsConfig
	source  StatusSource
	metrics *monitoring.Metrics
	logger  *zap.Logger
	closing chan struct{}
}

// NewServer wires the routes. metrics and gatherer may be nil, in which case
// /metrics is not served and /status carries no totals.
func NewServer(cfg config.DiagnosticsConfig, source StatusSource, metrics *monitoring.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}
	if cfg.RateLimitRPS > 0 {
		router.Use(rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	s := &Server{
		router:  router,
		cfg:     cfg,
		source:  source,
		metrics: metrics,
		logger:  logger,
		closing: make(chan struct{}),
	}

	router.GET("/", s.root)
	router.GET("/healthz", s.health)
	router.GET("/status", s.status)
	router.GET("/status/stream", s.stream)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting diagnostics server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		close(s.closing)
		return fmt.Errorf("diagnostics server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down diagnostics server")
	close(s.closing)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("diagnostics shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) snapshot() StatusResponse {
	resp := StatusResponse{Manager: s.source.Status()}
	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		resp.Metrics = &snap
	}
	return resp
}

func (s *Server) root(c *gin.Context) {
	st := s.source.Status()
	services := make([]string, len(st.Services))
	for i, svc := range st.Services {
		services[i] = svc.Name
	}
	c.JSON(http.StatusOK, gin.H{
		"name":     "horizon",
		"services": services,
		"endpoints": []string{
			"/healthz", "/status", "/status/stream", "/metrics",
		},
	})
}

// health is 200 while the event loop runs and 503 otherwise.
func (s *Server) health(c *gin.Context) {
	if !s.source.Status().Running {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}
