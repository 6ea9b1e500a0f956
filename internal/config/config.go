package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr               string
	DatabaseURL        string
	AuthURL            string
	AuthAnonKey        string
	RateLimitPerSec    float64
	RateLimitBurst     int
	StartupSeedCatalog bool
	StartupSeedLands   int
	SeedCenterLat      float64
	SeedCenterLon      float64
}

type WorkerConfig struct {
	DatabaseURL          string
	MarketTickEvery      time.Duration
	MaturationSweepEvery time.Duration
	RunOnce              bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("AGRARIA_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:               addr,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AuthURL:            strings.TrimRight(strings.TrimSpace(os.Getenv("AUTH_URL")), "/"),
		AuthAnonKey:        strings.TrimSpace(os.Getenv("AUTH_ANON_KEY")),
		RateLimitPerSec:    envFloatDefault("AGRARIA_RATE_LIMIT_PER_SEC", 20),
		RateLimitBurst:     envIntDefault("AGRARIA_RATE_LIMIT_BURST", 40),
		StartupSeedCatalog: envBoolDefault("AGRARIA_STARTUP_SEED_CATALOG", true),
		StartupSeedLands:   envIntDefault("AGRARIA_STARTUP_SEED_LANDS", 0),
		SeedCenterLat:      envFloatDefault("AGRARIA_SEED_CENTER_LAT", -15.60),
		SeedCenterLon:      envFloatDefault("AGRARIA_SEED_CENTER_LON", -56.10),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AuthURL == "" {
		return cfg, fmt.Errorf("AUTH_URL is required")
	}
	if cfg.AuthAnonKey == "" {
		return cfg, fmt.Errorf("AUTH_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	_ = godotenv.Load()

	cfg := WorkerConfig{
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MarketTickEvery:      envDurationDefault("AGRARIA_MARKET_TICK_EVERY", 5*time.Minute),
		MaturationSweepEvery: envDurationDefault("AGRARIA_MATURATION_SWEEP_EVERY", 30*time.Second),
		RunOnce:              envBoolDefault("AGRARIA_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("AGC_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
