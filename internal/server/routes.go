package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Dashboard API
	s.echo.GET("/api/cache/stats", s.handleCacheStats)
	s.echo.GET("/api/live/state", s.handleLiveState)
	s.echo.GET("/api/data/*", s.handleData)
	s.echo.POST("/api/projection", s.handleProjection)
}
