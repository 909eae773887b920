package handlers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/http/middleware"
)

// PoolOperator executes borrower-side ledger operations. On a public
// network these arrive through the user's wallet; the devnet API relays
// them for the authenticated caller address.
type PoolOperator interface {
	DepositCollateral(caller chain.Address, amount *big.Int, id chain.Hash) (*chain.Receipt, error)
	Borrow(caller chain.Address, amount *big.Int) (*chain.Receipt, error)
	Repay(caller chain.Address, amount *big.Int) (*chain.Receipt, error)
	WithdrawCollateral(caller chain.Address, amount *big.Int) (*chain.Receipt, error)
	Liquidate(caller, user chain.Address) (*chain.Receipt, error)
}

type PoolOpsHandler struct {
	operator PoolOperator
}

func NewPoolOpsHandler(operator PoolOperator) *PoolOpsHandler {
	return &PoolOpsHandler{operator: operator}
}

type poolOpRequest struct {
	Amount         string `json:"amount"`
	BTCAddressHash string `json:"btc_address_hash"`
	User           string `json:"user"`
}

func (h *PoolOpsHandler) Deposit(c *gin.Context) {
	caller, req, amount, ok := h.parse(c, true)
	if !ok {
		return
	}
	id, err := chain.ParseHash(req.BTCAddressHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, func() (*chain.Receipt, error) {
		return h.operator.DepositCollateral(caller, amount, id)
	})
}

func (h *PoolOpsHandler) Borrow(c *gin.Context) {
	caller, _, amount, ok := h.parse(c, true)
	if !ok {
		return
	}
	h.respond(c, func() (*chain.Receipt, error) {
		return h.operator.Borrow(caller, amount)
	})
}

func (h *PoolOpsHandler) Repay(c *gin.Context) {
	caller, _, amount, ok := h.parse(c, true)
	if !ok {
		return
	}
	h.respond(c, func() (*chain.Receipt, error) {
		return h.operator.Repay(caller, amount)
	})
}

func (h *PoolOpsHandler) Withdraw(c *gin.Context) {
	caller, _, amount, ok := h.parse(c, true)
	if !ok {
		return
	}
	h.respond(c, func() (*chain.Receipt, error) {
		return h.operator.WithdrawCollateral(caller, amount)
	})
}

func (h *PoolOpsHandler) Liquidate(c *gin.Context) {
	caller, req, _, ok := h.parse(c, false)
	if !ok {
		return
	}
	user := chain.Address(strings.TrimSpace(req.User))
	if user.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_user"})
		return
	}
	h.respond(c, func() (*chain.Receipt, error) {
		return h.operator.Liquidate(caller, user)
	})
}

func (h *PoolOpsHandler) parse(c *gin.Context, needAmount bool) (chain.Address, poolOpRequest, *big.Int, bool) {
	caller := chain.Address(middleware.CallerAddress(c))
	if caller.IsZero() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", poolOpRequest{}, nil, false
	}

	var req poolOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return "", poolOpRequest{}, nil, false
	}

	var amount *big.Int
	if needAmount {
		parsed, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
			return "", poolOpRequest{}, nil, false
		}
		amount = parsed
	}
	return caller, req, amount, true
}

func (h *PoolOpsHandler) respond(c *gin.Context, op func() (*chain.Receipt, error)) {
	receipt, err := op()
	if err != nil {
		respondChainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_hash": receipt.TxHash})
}
