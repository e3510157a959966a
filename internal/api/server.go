// Package api serves health, progress and metrics over HTTP while a run is in
// progress.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"kepler-counter-go/internal/api/handlers"
	"kepler-counter-go/internal/api/middleware"
	"kepler-counter-go/internal/config"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	gatherer prometheus.Gatherer

	healthHandler *handlers.HealthHandler
	statusHandler *handlers.StatusHandler
}

func NewServer(cfg *config.Config, runID string, status handlers.StatusSource, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		gatherer:      gatherer,
		healthHandler: handlers.NewHealthHandler(runID, cfg.Version),
		statusHandler: handlers.NewStatusHandler(status),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting status API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping status API")
	return s.server.Shutdown(ctx)
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
