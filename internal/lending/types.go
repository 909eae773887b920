package lending

import (
	"errors"
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

const (
	// Health factor below this (in bps of debt coverage) makes a
	// position liquidation-eligible.
	LiquidationThresholdBPS = 10000

	// Share of seized collateral paid to the liquidator, capped at the
	// deposited collateral.
	LiquidationBonusBPS = 500

	SecondsPerYear = 31_536_000

	// Lowest score the registry hands out; anything below it means the
	// identifier was never registered.
	MinValidScore uint16 = 650

	// Health factor reported while a position carries no debt.
	HealthFactorMax = 99999
)

var (
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrNoValidScore          = errors.New("no_valid_score")
	ErrNoScoreLinked         = errors.New("no_score_linked")
	ErrExceedsCapacity       = errors.New("exceeds_capacity")
	ErrInsufficientLiquidity = errors.New("insufficient_liquidity")
	ErrNoDebt                = errors.New("no_debt")
	ErrDebtOutstanding       = errors.New("debt_outstanding")
	ErrExceedsDeposited      = errors.New("exceeds_deposited")
	ErrPositionHealthy       = errors.New("position_healthy")
	ErrTransferFailed        = errors.New("transfer_failed")
	ErrAdminOnly             = errors.New("admin_only")
)

// ScoreOracle is the read-only view of the score registry the pool is
// constructed with.
type ScoreOracle interface {
	GetScore(id chain.Hash) uint16
	GetCollateralRatio(id chain.Hash) uint32
}

// Token is the minimal transfer capability for the collateral and
// borrow tokens. Transfer spends the pool's own balance. Any error
// aborts and reverts the calling operation.
type Token interface {
	Transfer(tx *chain.Tx, to chain.Address, amount *big.Int) error
	TransferFrom(tx *chain.Tx, from, to chain.Address, amount *big.Int) error
}

// Position is the per-borrower ledger entry. BorrowTimestamp 0 means no
// outstanding principal. CachedRatioBPS is the ratio observed at the
// last deposit or borrow, exposed for display; capacity checks always
// re-read the live ratio.
type Position struct {
	Collateral      *big.Int
	Principal       *big.Int
	BorrowTimestamp uint64
	LinkedScoreHash chain.Hash
	CachedRatioBPS  uint32
}

// PositionView is the get_position read: collateral, accrued debt, the
// cached ratio, and whether the position is currently liquidatable.
type PositionView struct {
	Collateral     *big.Int
	TotalDebt      *big.Int
	CachedRatioBPS uint32
	Liquidatable   bool
}

type CollateralDepositedEvent struct {
	User   chain.Address `json:"user"`
	Amount string        `json:"amount"`
	ID     string        `json:"id"`
}

type BorrowedEvent struct {
	User     chain.Address `json:"user"`
	Amount   string        `json:"amount"`
	RatioBPS uint32        `json:"ratio_bps"`
}

type RepaidEvent struct {
	User   chain.Address `json:"user"`
	Amount string        `json:"amount"`
}

type CollateralWithdrawnEvent struct {
	User   chain.Address `json:"user"`
	Amount string        `json:"amount"`
}

type LiquidatedEvent struct {
	User             chain.Address `json:"user"`
	Liquidator       chain.Address `json:"liquidator"`
	DebtRepaid       string        `json:"debt_repaid"`
	CollateralSeized string        `json:"collateral_seized"`
}

const (
	EventCollateralDeposited = "CollateralDeposited"
	EventBorrowed            = "Borrowed"
	EventRepaid              = "Repaid"
	EventCollateralWithdrawn = "CollateralWithdrawn"
	EventLiquidated          = "Liquidated"
)
