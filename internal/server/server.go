package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/poly4/fpl-analsyer-sub000/internal/cache"
	"github.com/poly4/fpl-analsyer-sub000/internal/config"
	apperrors "github.com/poly4/fpl-analsyer-sub000/internal/errors"
	"github.com/poly4/fpl-analsyer-sub000/internal/fetch"
	"github.com/poly4/fpl-analsyer-sub000/internal/live"
	"github.com/poly4/fpl-analsyer-sub000/internal/projection"
)

// cacheStats is the slice of the cache store the handlers need.
type cacheStats interface {
	Stats() cache.Stats
	Size() int
}

// liveStater reports the live feed connection state.
type liveStater interface {
	State() live.ConnectionState
}

// computeEngine submits projection requests.
type computeEngine interface {
	Compute(ctx context.Context, req projection.Request) (projection.Response, error)
}

// dataFetcher is the cached read path to the upstream fantasy API.
type dataFetcher interface {
	GetJSON(ctx context.Context, endpoint string, params map[string]string, class cache.DataClass) (fetch.Result, error)
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	cache     cacheStats
	liveFeed  liveStater
	engine    computeEngine
	fetcher   dataFetcher
	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Config, store cacheStats, liveFeed liveStater, engine computeEngine, fetcher dataFetcher, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		cache:     store,
		liveFeed:  liveFeed,
		engine:    engine,
		fetcher:   fetcher,
		clock:     clock,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
