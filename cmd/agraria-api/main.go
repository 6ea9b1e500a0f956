package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agraria/internal/api"
	"agraria/internal/auth"
	"agraria/internal/config"
	"agraria/internal/db"
	"agraria/internal/game"
	"agraria/internal/spatial"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	authClient := auth.NewProviderClient(cfg.AuthURL, cfg.AuthAnonKey)
	gameSvc := game.NewService(pool, spatial.NewPostgisCounter(pool), logger)

	if cfg.StartupSeedCatalog {
		if err := gameSvc.SeedDefaults(ctx); err != nil {
			logger.Error("seed catalog failed", "err", err)
			os.Exit(1)
		}
	}
	if cfg.StartupSeedLands > 0 {
		if err := gameSvc.SeedLands(ctx, cfg.StartupSeedLands, cfg.SeedCenterLat, cfg.SeedCenterLon); err != nil {
			logger.Error("seed lands failed", "err", err)
			os.Exit(1)
		}
	}

	server := api.New(cfg, logger, authClient, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("agraria api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
