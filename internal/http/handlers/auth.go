package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwigaDEVs/BitCred/internal/auth"
)

// AuthHandler issues bearer tokens for the devnet. Real deployments
// authenticate against a wallet signature service instead; this
// endpoint is only mounted outside production.
type AuthHandler struct {
	jwt *auth.JWTManager
	ttl time.Duration
}

func NewAuthHandler(jwt *auth.JWTManager, ttl time.Duration) *AuthHandler {
	return &AuthHandler{jwt: jwt, ttl: ttl}
}

type tokenRequest struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_address"})
		return
	}

	role := strings.TrimSpace(req.Role)
	switch role {
	case "":
		role = auth.RoleUser
	case auth.RoleUser, auth.RoleScorer, auth.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		return
	}

	token, err := h.jwt.Mint(address, role, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_mint_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int64(h.ttl.Seconds()),
	})
}
