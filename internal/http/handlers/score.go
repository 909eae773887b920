package handlers

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/http/middleware"
	"github.com/TwigaDEVs/BitCred/internal/registry"
)

// ScoreSubmitter executes registry writes on behalf of an authenticated
// caller.
type ScoreSubmitter interface {
	RegisterScore(caller chain.Address, id chain.Hash, score uint16, proof []*big.Int) (*chain.Receipt, error)
	UpdateScore(caller chain.Address, id chain.Hash, score uint16, proof []*big.Int) (*chain.Receipt, error)
	ApproveScorer(caller chain.Address, account chain.Address) (*chain.Receipt, error)
	RevokeScorer(caller chain.Address, account chain.Address) (*chain.Receipt, error)
}

// ScoreReader is the registry's pure read surface.
type ScoreReader interface {
	GetScore(id chain.Hash) uint16
	GetScoreTier(id chain.Hash) uint8
	GetCollateralRatio(id chain.Hash) uint32
	GetOwner(id chain.Hash) chain.Address
	GetLastUpdated(id chain.Hash) uint64
	IsApprovedScorer(account chain.Address) bool
}

type ScoreHandler struct {
	reader    ScoreReader
	submitter ScoreSubmitter
}

func NewScoreHandler(reader ScoreReader, submitter ScoreSubmitter) *ScoreHandler {
	return &ScoreHandler{reader: reader, submitter: submitter}
}

type submitScoreRequest struct {
	BTCAddressHash string   `json:"btc_address_hash" binding:"required"`
	Score          uint16   `json:"score" binding:"required"`
	Proof          []string `json:"proof"`
}

// GetByAddress derives the identifier from a raw Bitcoin address and
// reads the registry. The raw address is hashed locally, never stored.
func (h *ScoreHandler) GetByAddress(c *gin.Context) {
	btcAddress := strings.TrimSpace(c.Param("btcAddress"))
	if btcAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_btc_address"})
		return
	}
	h.respondScore(c, chain.HashBTCAddress(btcAddress))
}

// GetByHash reads the registry by the on-chain identifier directly.
func (h *ScoreHandler) GetByHash(c *gin.Context) {
	id, err := chain.ParseHash(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondScore(c, id)
}

func (h *ScoreHandler) respondScore(c *gin.Context, id chain.Hash) {
	score := h.reader.GetScore(id)
	ratio := h.reader.GetCollateralRatio(id)
	c.JSON(http.StatusOK, gin.H{
		"btc_address_hash":     id.Hex(),
		"score":                score,
		"tier":                 h.reader.GetScoreTier(id),
		"collateral_ratio_bps": ratio,
		"collateral_ratio_pct": float64(ratio) / 100,
		"registered":           score != 0,
		"last_updated":         h.reader.GetLastUpdated(id),
	})
}

// Submit registers a precomputed score. The scoring pipeline runs
// off-chain; this endpoint only relays its output.
func (h *ScoreHandler) Submit(c *gin.Context) {
	h.submit(c, false)
}

// Update overwrites an existing score, subject to the on-chain cooldown.
func (h *ScoreHandler) Update(c *gin.Context) {
	h.submit(c, true)
}

func (h *ScoreHandler) submit(c *gin.Context, update bool) {
	caller := chain.Address(middleware.CallerAddress(c))
	if caller.IsZero() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req submitScoreRequest
	if update {
		req.BTCAddressHash = c.Param("id")
		if err := c.ShouldBindJSON(&req); err != nil || req.Score == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	id, err := chain.ParseHash(req.BTCAddressHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_proof"})
		return
	}

	var receipt *chain.Receipt
	if update {
		receipt, err = h.submitter.UpdateScore(caller, id, req.Score, proof)
	} else {
		receipt, err = h.submitter.RegisterScore(caller, id, req.Score, proof)
	}
	if err != nil {
		respondChainError(c, err)
		return
	}

	tier, ratio := registry.TierForScore(req.Score)
	c.JSON(http.StatusOK, gin.H{
		"tx_hash":              receipt.TxHash,
		"btc_address_hash":     id.Hex(),
		"score":                req.Score,
		"tier":                 tier,
		"collateral_ratio_bps": ratio,
	})
}

// ApproveScorer and RevokeScorer are admin routes toggling scorer
// authorization on-chain.
func (h *ScoreHandler) ApproveScorer(c *gin.Context) {
	h.setScorer(c, true)
}

func (h *ScoreHandler) RevokeScorer(c *gin.Context) {
	h.setScorer(c, false)
}

func (h *ScoreHandler) setScorer(c *gin.Context, approve bool) {
	caller := chain.Address(middleware.CallerAddress(c))
	account := chain.Address(strings.TrimSpace(c.Param("account")))
	if account.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_account"})
		return
	}

	var receipt *chain.Receipt
	var err error
	if approve {
		receipt, err = h.submitter.ApproveScorer(caller, account)
	} else {
		receipt, err = h.submitter.RevokeScorer(caller, account)
	}
	if err != nil {
		respondChainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tx_hash":  receipt.TxHash,
		"account":  account,
		"approved": h.reader.IsApprovedScorer(account),
	})
}

// Proof values arrive as hex felts from the off-chain prover.
func parseProof(raw []string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimPrefix(strings.TrimSpace(item), "0x")
		v, ok := new(big.Int).SetString(trimmed, 16)
		if !ok {
			return nil, strconvError(item)
		}
		out = append(out, v)
	}
	return out, nil
}

type strconvError string

func (e strconvError) Error() string { return "invalid_felt: " + string(e) }
