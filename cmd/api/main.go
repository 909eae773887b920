package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TwigaDEVs/BitCred/internal/auth"
	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/config"
	"github.com/TwigaDEVs/BitCred/internal/db"
	"github.com/TwigaDEVs/BitCred/internal/devnet"
	"github.com/TwigaDEVs/BitCred/internal/events"
	"github.com/TwigaDEVs/BitCred/internal/gateway"
	"github.com/TwigaDEVs/BitCred/internal/http/handlers"
	"github.com/TwigaDEVs/BitCred/internal/jobs"
	"github.com/TwigaDEVs/BitCred/internal/observability"
	postgresrepo "github.com/TwigaDEVs/BitCred/internal/repository/postgres"
	"github.com/TwigaDEVs/BitCred/internal/server"
	"github.com/TwigaDEVs/BitCred/internal/ws"
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

	initialLiquidity, err := config.ParseAmount(cfg.InitialLiquidity)
	if err != nil {
		logger.Error("invalid initial liquidity", "err", err)
		os.Exit(1)
	}

	world, err := devnet.Deploy(devnet.Config{
		Admin:            chain.Address(cfg.AdminAddress),
		InterestRateBPS:  cfg.InterestRateBPS,
		InitialLiquidity: initialLiquidity,
	})
	if err != nil {
		logger.Error("failed to deploy devnet", "err", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	eventRepo := postgresrepo.NewEventRepository(pgPool)
	recorder := events.NewRecorder(eventRepo, hub, logger)
	world.Env.AddObserver(recorder)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go recorder.Run(sigCtx)

	promRegistry := prometheus.NewRegistry()
	world.Env.AddObserver(observability.NewChainMetrics(promRegistry))

	gw := gateway.New(world.Env, world.Registry, world.Pool)
	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)

	if cfg.KeeperEnabled {
		funding, err := config.ParseAmount(cfg.KeeperFunding)
		if err != nil {
			logger.Error("invalid keeper funding", "err", err)
			os.Exit(1)
		}
		keeperAccount := chain.Address(cfg.KeeperAddress)
		world.BorrowToken.Mint(keeperAccount, funding)

		keeper := jobs.NewKeeper(gw, gw, keeperAccount, logger)
		go runKeeper(sigCtx, keeper, cfg.KeeperInterval, logger)
	}

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:         pgPool,
		AuthHandler:    handlers.NewAuthHandler(jwtManager, cfg.JWTAccessTTL),
		FaucetHandler:  handlers.NewFaucetHandler(devnet.NewFaucet(world.Env, world.CollateralToken, world.BorrowToken)),
		ScoreHandler:   handlers.NewScoreHandler(gw, gw),
		PoolHandler:    handlers.NewPoolHandler(gw, gw),
		PoolOpsHandler: handlers.NewPoolOpsHandler(gw),
		WSHandler:      ws.NewHandler(hub),
		JWTManager:     jwtManager,
		Metrics:        promRegistry,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}

func runKeeper(ctx context.Context, keeper *jobs.Keeper, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("liquidation keeper started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("liquidation keeper stopped")
			return
		case <-ticker.C:
			n, err := keeper.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("keeper sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("keeper sweep complete", "liquidated", n)
			}
		}
	}
}
