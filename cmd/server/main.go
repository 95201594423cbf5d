package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/poly4/fpl-analsyer-sub000/internal/cache"
	"github.com/poly4/fpl-analsyer-sub000/internal/config"
	"github.com/poly4/fpl-analsyer-sub000/internal/domain"
	"github.com/poly4/fpl-analsyer-sub000/internal/fetch"
	"github.com/poly4/fpl-analsyer-sub000/internal/live"
	"github.com/poly4/fpl-analsyer-sub000/internal/logging"
	"github.com/poly4/fpl-analsyer-sub000/internal/projection"
	"github.com/poly4/fpl-analsyer-sub000/internal/server"
)

// The upstream fantasy API throttles aggressive clients, so outbound
// requests are paced below its published limit.
const (
	upstreamRateLimit = rate.Limit(5)
	upstreamRateBurst = 10
)

var (
	leagueKeys = regexp.MustCompile(`^(league|leagues-classic)/`)
	liveKeys   = regexp.MustCompile(`^(live|event)/`)
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// wireLiveInvalidation drops cached entries whose source data just changed
// on the live feed, so the next dashboard read refetches instead of serving
// a value the user can see is wrong.
func wireLiveInvalidation(client *live.Client, store *cache.Store) {
	client.On(domain.MsgLeagueUpdate, func(payload json.RawMessage, meta domain.Meta) {
		n := store.InvalidatePattern(leagueKeys)
		slog.Debug("Invalidated league cache entries after live update", "count", n)
	})
	client.On(domain.MsgLiveScores, func(payload json.RawMessage, meta domain.Meta) {
		n := store.InvalidatePattern(liveKeys)
		slog.Debug("Invalidated live score cache entries", "count", n)
	})
}

func runGracefulShutdown(srv *server.Server, liveClient *live.Client, engine *projection.Engine, stopSweep func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		liveClient.Close()
		engine.Stop()
		stopSweep()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	store := cache.NewStore(clock, cache.WithRetentionGrace(cfg.CacheRetentionGrace))
	stopSweep := store.StartSweep(cfg.CacheSweepInterval)

	fetcher := fetch.NewFetcher(cfg.FantasyAPIBaseURL, store,
		fetch.WithRateLimit(upstreamRateLimit, upstreamRateBurst))

	engine := projection.NewEngine(projection.WithTrials(cfg.SimulationTrials))
	engine.Start()

	liveClient := live.NewClient(cfg.LiveFeedURL, live.NewWebsocketTransport(), clock,
		live.WithMaxAttempts(cfg.ReconnectMaxAttempts),
		live.WithFailureHandler(func(err error) {
			slog.Error("Live feed unreachable, reconnection budget exhausted", "error", err)
		}),
	)
	// Listeners are in place before the first connect, so no frame can
	// slip past the invalidation hooks.
	wireLiveInvalidation(liveClient, store)
	liveClient.Start()

	srv := server.NewServer(cfg, store, liveClient, engine, fetcher, clock)

	done := runGracefulShutdown(srv, liveClient, engine, stopSweep)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
