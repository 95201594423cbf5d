package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv            string `env:"APP_ENV" default:"development"`
	Port              string `env:"PORT" default:"8080"`
	LogLevel          string `env:"LOG_LEVEL" default:"info"`
	LogFormat         string `env:"LOG_FORMAT" default:"text"`
	FantasyAPIBaseURL string `env:"FANTASY_API_BASE_URL"`
	LiveFeedURL       string `env:"LIVE_FEED_URL"`

	// Background behaviour tunables. The per-class TTL table is fixed
	// policy and intentionally not configurable here.
	CacheSweepInterval   time.Duration `env:"CACHE_SWEEP_INTERVAL" default:"1m"`
	CacheRetentionGrace  time.Duration `env:"CACHE_RETENTION_GRACE" default:"10m"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" default:"10"`
	SimulationTrials     int           `env:"SIMULATION_TRIALS" default:"1000"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"FANTASY_API_BASE_URL": cfg.FantasyAPIBaseURL,
		"LIVE_FEED_URL":        cfg.LiveFeedURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.SimulationTrials <= 0 {
		return fmt.Errorf("SIMULATION_TRIALS must be positive, got %d", cfg.SimulationTrials)
	}
	if cfg.ReconnectMaxAttempts <= 0 {
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS must be positive, got %d", cfg.ReconnectMaxAttempts)
	}

	return nil
}
