package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/agraria")
	t.Setenv("AUTH_URL", "https://auth.example.com/")
	t.Setenv("AUTH_ANON_KEY", "anon")
	t.Setenv("PORT", "")

	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://auth.example.com", cfg.AuthURL)
	assert.Equal(t, 20.0, cfg.RateLimitPerSec)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.True(t, cfg.StartupSeedCatalog)
	assert.Equal(t, 0, cfg.StartupSeedLands)
}

func TestLoadAPIFromEnvPortOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/agraria")
	t.Setenv("AUTH_URL", "https://auth.example.com")
	t.Setenv("AUTH_ANON_KEY", "anon")
	t.Setenv("PORT", "9090")

	cfg, err := LoadAPIFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestLoadAPIFromEnvMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTH_URL", "https://auth.example.com")
	t.Setenv("AUTH_ANON_KEY", "anon")

	_, err := LoadAPIFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/agraria")
	t.Setenv("AGRARIA_MARKET_TICK_EVERY", "90s")
	t.Setenv("AGRARIA_WORKER_RUN_ONCE", "true")

	cfg, err := LoadWorkerFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.MarketTickEvery)
	assert.Equal(t, 30*time.Second, cfg.MaturationSweepEvery)
	assert.True(t, cfg.RunOnce)
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_DUR", "not-a-duration")
	t.Setenv("X_FLOAT", "not-a-float")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, time.Minute, envDurationDefault("X_DUR", time.Minute))
	assert.Equal(t, 1.5, envFloatDefault("X_FLOAT", 1.5))
	assert.Equal(t, 7, envIntDefault("X_INT", 7))
	assert.True(t, envBoolDefault("X_BOOL", true))
}
