package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TwigaDEVs/BitCred/internal/config"
	"github.com/TwigaDEVs/BitCred/internal/db"
	"github.com/TwigaDEVs/BitCred/internal/events"
	"github.com/TwigaDEVs/BitCred/internal/observability"
	postgresrepo "github.com/TwigaDEVs/BitCred/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgPool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	indexer := events.NewIndexer(
		postgresrepo.NewEventRepository(pgPool),
		postgresrepo.NewProjectionRepository(pgPool),
		logger,
	)

	interval := cfg.IndexerPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("indexer started", "interval", interval.String(), "batch_size", cfg.IndexerBatchSize)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("indexer stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := indexer.RunOnce(runCtx, cfg.IndexerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("indexer run failed", "err", err)
			}
		}
	}
}
