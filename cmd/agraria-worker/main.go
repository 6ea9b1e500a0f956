package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agraria/internal/config"
	"agraria/internal/db"
	"agraria/internal/game"
	"agraria/internal/spatial"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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

	svc := game.NewService(pool, spatial.NewPostgisCounter(pool), logger)

	if cfg.RunOnce {
		if err := svc.UpdatePrices(ctx); err != nil {
			logger.Error("market tick failed", "err", err)
			os.Exit(1)
		}
		if _, err := svc.CheckMaturation(ctx); err != nil {
			logger.Error("maturation sweep failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	marketTicker := time.NewTicker(cfg.MarketTickEvery)
	defer marketTicker.Stop()
	maturationTicker := time.NewTicker(cfg.MaturationSweepEvery)
	defer maturationTicker.Stop()

	logger.Info("worker started",
		"market_tick_every", cfg.MarketTickEvery.String(),
		"maturation_sweep_every", cfg.MaturationSweepEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-marketTicker.C:
			if err := svc.UpdatePrices(ctx); err != nil {
				logger.Error("market tick failed", "err", err)
				continue
			}
			logger.Info("market tick complete")
		case <-maturationTicker.C:
			if _, err := svc.CheckMaturation(ctx); err != nil {
				logger.Error("maturation sweep failed", "err", err)
			}
		}
	}
}
