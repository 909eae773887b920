package handlers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/http/middleware"
)

// TokenFaucet credits devnet test tokens as a chain operation. There is
// no faucet on a real deployment; the router only mounts this handler
// outside production.
type TokenFaucet interface {
	Drip(account chain.Address, symbol string, amount *big.Int) (*big.Int, error)
}

type FaucetHandler struct {
	faucet TokenFaucet
}

func NewFaucetHandler(faucet TokenFaucet) *FaucetHandler {
	return &FaucetHandler{faucet: faucet}
}

type faucetRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func (h *FaucetHandler) Drip(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		return
	}

	account := chain.Address(middleware.CallerAddress(c))
	symbol := strings.TrimSpace(req.Symbol)
	balance, err := h.faucet.Drip(account, symbol, amount)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"account": string(account),
		"balance": balance.String(),
	})
}
