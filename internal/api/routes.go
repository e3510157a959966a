package api

import "kepler-counter-go/internal/api/handlers"

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Info)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", handlers.Metrics(metricsHandler(s.gatherer)))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.statusHandler.Status)
	}

	s.setupSwagger()
}
