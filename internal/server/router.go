package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TwigaDEVs/BitCred/internal/auth"
	"github.com/TwigaDEVs/BitCred/internal/config"
	"github.com/TwigaDEVs/BitCred/internal/http/handlers"
	"github.com/TwigaDEVs/BitCred/internal/http/middleware"
	"github.com/TwigaDEVs/BitCred/internal/version"
	"github.com/TwigaDEVs/BitCred/internal/ws"
)

type Dependencies struct {
	Pinger         handlers.Pinger
	AuthHandler    *handlers.AuthHandler
	FaucetHandler  *handlers.FaucetHandler
	ScoreHandler   *handlers.ScoreHandler
	PoolHandler    *handlers.PoolHandler
	PoolOpsHandler *handlers.PoolOpsHandler
	WSHandler      *ws.Handler
	JWTManager     *auth.JWTManager
	Metrics        prometheus.Gatherer
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	if cfg.Env != "prod" && cfg.Env != "production" {
		if deps.AuthHandler != nil {
			r.POST("/v1/auth/token", deps.AuthHandler.IssueToken)
		}
		if deps.FaucetHandler != nil {
			faucetGroup := r.Group("/v1")
			faucetGroup.Use(middleware.RequireAuth(deps.JWTManager))
			faucetGroup.POST("/faucet", deps.FaucetHandler.Drip)
		}
	}

	if deps.ScoreHandler != nil {
		r.GET("/v1/scores/address/:btcAddress", deps.ScoreHandler.GetByAddress)
		r.GET("/v1/scores/:id", deps.ScoreHandler.GetByHash)

		scoreGroup := r.Group("/v1")
		scoreGroup.Use(middleware.RequireAuth(deps.JWTManager))
		scoreGroup.POST("/scores", deps.ScoreHandler.Submit)
		scoreGroup.PUT("/scores/:id", deps.ScoreHandler.Update)

		adminGroup := r.Group("/v1")
		adminGroup.Use(middleware.RequireAuth(deps.JWTManager), middleware.RequireRole(auth.RoleAdmin))
		adminGroup.POST("/scorers/:account", deps.ScoreHandler.ApproveScorer)
		adminGroup.DELETE("/scorers/:account", deps.ScoreHandler.RevokeScorer)
	}

	if deps.PoolHandler != nil {
		r.GET("/v1/pool/positions/:account", deps.PoolHandler.GetPosition)
		r.GET("/v1/pool/liquidity", deps.PoolHandler.GetLiquidity)

		adminGroup := r.Group("/v1")
		adminGroup.Use(middleware.RequireAuth(deps.JWTManager), middleware.RequireRole(auth.RoleAdmin))
		adminGroup.POST("/pool/liquidity", deps.PoolHandler.AddLiquidity)
	}

	if deps.PoolOpsHandler != nil {
		opsGroup := r.Group("/v1/pool")
		opsGroup.Use(middleware.RequireAuth(deps.JWTManager))
		opsGroup.POST("/deposit", deps.PoolOpsHandler.Deposit)
		opsGroup.POST("/borrow", deps.PoolOpsHandler.Borrow)
		opsGroup.POST("/repay", deps.PoolOpsHandler.Repay)
		opsGroup.POST("/withdraw", deps.PoolOpsHandler.Withdraw)
		opsGroup.POST("/liquidate", deps.PoolOpsHandler.Liquidate)
	}

	if deps.WSHandler != nil {
		r.GET("/v1/ws", deps.WSHandler.HandleWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
