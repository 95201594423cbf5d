package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FANTASY_API_BASE_URL", "https://fantasy.example.com/api")
	t.Setenv("LIVE_FEED_URL", "wss://feed.example.com/live")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.CacheSweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.CacheRetentionGrace)
	assert.Equal(t, 10, cfg.ReconnectMaxAttempts)
	assert.Equal(t, 1000, cfg.SimulationTrials)
}

func TestLoad_MissingAPIBaseURL(t *testing.T) {
	t.Setenv("FANTASY_API_BASE_URL", "")
	t.Setenv("LIVE_FEED_URL", "wss://feed.example.com/live")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FANTASY_API_BASE_URL")
}

func TestLoad_MissingLiveFeedURL(t *testing.T) {
	t.Setenv("FANTASY_API_BASE_URL", "https://fantasy.example.com/api")
	t.Setenv("LIVE_FEED_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LIVE_FEED_URL")
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_SWEEP_INTERVAL", "30s")
	t.Setenv("CACHE_RETENTION_GRACE", "1h")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "5")
	t.Setenv("SIMULATION_TRIALS", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.CacheSweepInterval)
	assert.Equal(t, time.Hour, cfg.CacheRetentionGrace)
	assert.Equal(t, 5, cfg.ReconnectMaxAttempts)
	assert.Equal(t, 5000, cfg.SimulationTrials)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_SWEEP_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load environment variables")
}

func TestLoad_NonPositiveTrials(t *testing.T) {
	setRequired(t)
	t.Setenv("SIMULATION_TRIALS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIMULATION_TRIALS")
}
