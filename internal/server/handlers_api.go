package server

import (
	"fmt"

	"github.com/labstack/echo/v4"

	apperrors "github.com/poly4/fpl-analsyer-sub000/internal/errors"
	"github.com/poly4/fpl-analsyer-sub000/internal/projection"
)

func (s *Server) handleCacheStats(c echo.Context) error {
	stats := s.cache.Stats()
	if err := c.JSON(200, map[string]any{
		"entries":       s.cache.Size(),
		"valid_entries": stats.ValidEntries,
		"stale_entries": stats.StaleEntries,
		"approx_bytes":  stats.ApproxBytes,
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLiveState(c echo.Context) error {
	if err := c.JSON(200, map[string]string{
		"state": s.liveFeed.State().String(),
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleProjection passes a compute request through to the engine. The
// engine's own SUCCESS/ERROR envelope is the response body either way;
// HTTP-level errors are reserved for malformed requests and engine shutdown.
func (s *Server) handleProjection(c echo.Context) error {
	var req projection.Request
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Type == "" {
		return apperrors.ValidationError("type is required")
	}

	resp, err := s.engine.Compute(c.Request().Context(), req)
	if err != nil {
		return apperrors.InternalError("failed to compute projection", err).
			WithField("operation", string(req.Type))
	}

	if err := c.JSON(200, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
