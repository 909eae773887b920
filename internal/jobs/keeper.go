package jobs

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/lending"
)

type PositionScanner interface {
	NowUnix() uint64
	Accounts() []chain.Address
	GetHealthFactor(user chain.Address, now uint64) *big.Int
}

type PoolLiquidator interface {
	Liquidate(caller, user chain.Address) (*chain.Receipt, error)
}

// Keeper sweeps open positions and liquidates any whose health factor
// has dropped below the threshold. It acts as a regular liquidator: the
// keeper account must hold enough borrow token to cover the debt it
// repays, or the attempt reverts and is retried on the next sweep.
type Keeper struct {
	scanner    PositionScanner
	liquidator PoolLiquidator
	account    chain.Address
	threshold  *big.Int
	logger     *slog.Logger
}

func NewKeeper(scanner PositionScanner, liquidator PoolLiquidator, account chain.Address, logger *slog.Logger) *Keeper {
	return &Keeper{
		scanner:    scanner,
		liquidator: liquidator,
		account:    account,
		threshold:  big.NewInt(int64(lending.LiquidationThresholdBPS)),
		logger:     logger,
	}
}

// RunOnce performs a single sweep and returns the number of positions
// liquidated. A failed liquidation is logged and skipped rather than
// aborting the sweep; the position stays eligible for the next pass.
func (k *Keeper) RunOnce(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := k.scanner.NowUnix()
	liquidated := 0

	for _, account := range k.scanner.Accounts() {
		if err := ctx.Err(); err != nil {
			return liquidated, err
		}

		hf := k.scanner.GetHealthFactor(account, now)
		if hf.Cmp(k.threshold) >= 0 {
			continue
		}

		receipt, err := k.liquidator.Liquidate(k.account, account)
		if err != nil {
			// Healthy-at-execution is a benign race with a repay
			// that landed after the scan.
			if errors.Is(err, lending.ErrPositionHealthy) {
				continue
			}
			k.logger.Error("liquidation failed",
				"account", string(account),
				"health_factor", hf.String(),
				"error", err)
			continue
		}

		liquidated++
		k.logger.Info("position liquidated",
			"account", string(account),
			"health_factor", hf.String(),
			"tx_hash", receipt.TxHash)
	}

	return liquidated, nil
}
