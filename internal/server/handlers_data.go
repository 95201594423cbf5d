package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/poly4/fpl-analsyer-sub000/internal/cache"
	apperrors "github.com/poly4/fpl-analsyer-sub000/internal/errors"
	"github.com/poly4/fpl-analsyer-sub000/internal/fetch"
)

// handleData is the dashboard read path: it proxies an upstream fantasy API
// endpoint through the cache and reports cache provenance in headers. Stale
// responses carry the original cache timestamp so the UI can render
// "showing cached data from <time>".
func (s *Server) handleData(c echo.Context) error {
	endpoint := strings.Trim(c.Param("*"), "/")
	if endpoint == "" {
		return apperrors.ValidationError("endpoint path is required")
	}

	params := make(map[string]string)
	for key, values := range c.QueryParams() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	result, err := s.fetcher.GetJSON(c.Request().Context(), endpoint, params, classify(endpoint))
	if errors.Is(err, fetch.ErrNotFound) {
		return apperrors.NotFoundError("no upstream resource at this endpoint").
			WithField("endpoint", endpoint)
	}
	if err != nil {
		return apperrors.ExternalError("upstream fetch failed", err).
			WithField("endpoint", endpoint)
	}

	switch {
	case result.Stale:
		c.Response().Header().Set("X-Cache", "stale")
		c.Response().Header().Set("X-Cache-Date", result.CachedAt.Format(time.RFC3339))
	case result.FromCache:
		c.Response().Header().Set("X-Cache", "hit")
	default:
		c.Response().Header().Set("X-Cache", "miss")
	}

	if err := c.JSONBlob(http.StatusOK, result.Data); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// classify maps an upstream endpoint path to its staleness class by the
// leading path segment.
func classify(endpoint string) cache.DataClass {
	segment := endpoint
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		segment = endpoint[:i]
	}
	switch segment {
	case "manager", "entry":
		return cache.ClassManager
	case "league", "leagues-classic":
		return cache.ClassLeague
	case "analytics":
		return cache.ClassAnalytics
	case "live", "event":
		return cache.ClassLive
	default:
		return cache.ClassDefault
	}
}
