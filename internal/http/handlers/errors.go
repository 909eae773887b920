package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TwigaDEVs/BitCred/internal/lending"
	"github.com/TwigaDEVs/BitCred/internal/registry"
)

// respondChainError translates the contract error taxonomy into HTTP
// statuses. Unknown errors surface as 500 without leaking internals.
func respondChainError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrInvalidRange),
		errors.Is(err, lending.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrUnauthorized),
		errors.Is(err, registry.ErrAdminOnly),
		errors.Is(err, lending.ErrAdminOnly):
		status = http.StatusForbidden
	case errors.Is(err, registry.ErrNotRegistered):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrAlreadyRegistered),
		errors.Is(err, registry.ErrCooldownActive),
		errors.Is(err, lending.ErrNoValidScore),
		errors.Is(err, lending.ErrNoScoreLinked),
		errors.Is(err, lending.ErrExceedsCapacity),
		errors.Is(err, lending.ErrInsufficientLiquidity),
		errors.Is(err, lending.ErrNoDebt),
		errors.Is(err, lending.ErrDebtOutstanding),
		errors.Is(err, lending.ErrExceedsDeposited),
		errors.Is(err, lending.ErrPositionHealthy):
		status = http.StatusConflict
	case errors.Is(err, lending.ErrTransferFailed):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal_error"
	}
	c.JSON(status, gin.H{"error": msg})
}
