package server

import (
	"github.com/labstack/echo/v4"

	"github.com/poly4/fpl-analsyer-sub000/internal/live"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports ready while the live feed is connected and degraded
// while it reconnects. Cached data keeps serving during a reconnect, so a
// degraded process still takes traffic; only a closed client is unhealthy.
func (s *Server) handleReadiness(c echo.Context) error {
	state := s.liveFeed.State()
	switch state {
	case live.StateConnected:
		return c.JSON(200, map[string]string{"status": "ready"})
	case live.StateConnecting, live.StateReconnecting:
		return c.JSON(200, map[string]any{
			"status":     "degraded",
			"live_state": state.String(),
		})
	default:
		return c.JSON(503, map[string]any{
			"status":     "unhealthy",
			"live_state": state.String(),
		})
	}
}
