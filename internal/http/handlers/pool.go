package handlers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/http/middleware"
	"github.com/TwigaDEVs/BitCred/internal/lending"
)

// PoolReader is the lending pool's pure read surface plus the
// environment clock the accrued-debt reads need.
type PoolReader interface {
	NowUnix() uint64
	GetPosition(user chain.Address, now uint64) lending.PositionView
	GetHealthFactor(user chain.Address, now uint64) *big.Int
	GetMaxBorrow(user chain.Address) *big.Int
	GetBorrowed(user chain.Address) *big.Int
	GetAvailableLiquidity() *big.Int
	GetTotalCollateral() *big.Int
	GetTotalBorrowed() *big.Int
}

// LiquidityFunder executes admin liquidity top-ups.
type LiquidityFunder interface {
	AddLiquidity(caller chain.Address, amount *big.Int) (*chain.Receipt, error)
}

type PoolHandler struct {
	reader PoolReader
	funder LiquidityFunder
}

func NewPoolHandler(reader PoolReader, funder LiquidityFunder) *PoolHandler {
	return &PoolHandler{reader: reader, funder: funder}
}

func (h *PoolHandler) GetPosition(c *gin.Context) {
	account := chain.Address(strings.TrimSpace(c.Param("account")))
	if account.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_account"})
		return
	}

	now := h.reader.NowUnix()
	view := h.reader.GetPosition(account, now)
	c.JSON(http.StatusOK, gin.H{
		"account":              account,
		"collateral":           view.Collateral.String(),
		"total_debt":           view.TotalDebt.String(),
		"principal":            h.reader.GetBorrowed(account).String(),
		"collateral_ratio_bps": view.CachedRatioBPS,
		"health_factor":        h.reader.GetHealthFactor(account, now).String(),
		"max_borrow":           h.reader.GetMaxBorrow(account).String(),
		"is_liquidatable":      view.Liquidatable,
	})
}

func (h *PoolHandler) GetLiquidity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"available_liquidity": h.reader.GetAvailableLiquidity().String(),
		"total_collateral":    h.reader.GetTotalCollateral().String(),
		"total_borrowed":      h.reader.GetTotalBorrowed().String(),
	})
}

type addLiquidityRequest struct {
	Amount string `json:"amount" binding:"required"`
}

func (h *PoolHandler) AddLiquidity(c *gin.Context) {
	caller := chain.Address(middleware.CallerAddress(c))

	var req addLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		return
	}

	receipt, err := h.funder.AddLiquidity(caller, amount)
	if err != nil {
		respondChainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tx_hash":             receipt.TxHash,
		"available_liquidity": h.reader.GetAvailableLiquidity().String(),
	})
}
