package lending

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

var (
	bpsDenominator  = big.NewInt(10000)
	accrualDivisor  = big.NewInt(10000 * SecondsPerYear)
	liquidationBPS  = big.NewInt(LiquidationThresholdBPS)
	bonusMultiplier = big.NewInt(LiquidationBonusBPS)
)

// Pool is the collateralized lending ledger. It reads collateral ratios
// from the score oracle and moves assets through the two token
// capabilities; it never writes to the registry.
//
// Stored amounts are treated as immutable *big.Int values: arithmetic
// always produces fresh values so the revert journal can keep the old
// ones.
type Pool struct {
	self            chain.Address
	admin           chain.Address
	oracle          ScoreOracle
	collateralToken Token
	borrowToken     Token
	interestRateBPS uint32

	positions          map[chain.Address]Position
	totalCollateral    *big.Int
	totalBorrowed      *big.Int
	availableLiquidity *big.Int
}

func NewPool(self, admin chain.Address, oracle ScoreOracle, collateralToken, borrowToken Token, interestRateBPS uint32) *Pool {
	return &Pool{
		self:               self,
		admin:              admin,
		oracle:             oracle,
		collateralToken:    collateralToken,
		borrowToken:        borrowToken,
		interestRateBPS:    interestRateBPS,
		positions:          map[chain.Address]Position{},
		totalCollateral:    big.NewInt(0),
		totalBorrowed:      big.NewInt(0),
		availableLiquidity: big.NewInt(0),
	}
}

func (p *Pool) Address() chain.Address {
	return p.self
}

func (p *Pool) InterestRateBPS() uint32 {
	return p.interestRateBPS
}

// DepositCollateral pulls amount of the collateral token from the
// caller and credits their position. The identifier must resolve to a
// real registration (score >= 650); the ratio observed now is cached on
// the position for display.
func (p *Pool) DepositCollateral(tx *chain.Tx, amount *big.Int, id chain.Hash) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if p.oracle.GetScore(id) < MinValidScore {
		return ErrNoValidScore
	}
	if err := p.collateralToken.TransferFrom(tx, tx.Caller, p.self, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	pos := p.positions[tx.Caller]
	pos.Collateral = add(pos.Collateral, amount)
	pos.LinkedScoreHash = id
	pos.CachedRatioBPS = p.oracle.GetCollateralRatio(id)
	p.writePosition(tx, tx.Caller, pos)
	p.setTotalCollateral(tx, add(p.totalCollateral, amount))

	tx.Emit(EventCollateralDeposited, CollateralDepositedEvent{
		User:   tx.Caller,
		Amount: amount.String(),
		ID:     id.Hex(),
	})
	return nil
}

// Borrow settles accrued interest into principal, checks capacity
// against the live ratio, then lends amount to the caller.
func (p *Pool) Borrow(tx *chain.Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pos, ok := p.positions[tx.Caller]
	if !ok || pos.LinkedScoreHash.IsZero() {
		return ErrNoScoreLinked
	}

	ratio := p.oracle.GetCollateralRatio(pos.LinkedScoreHash)
	maxBorrow := maxBorrowFor(pos.Collateral, ratio)
	currentDebt := accruedDebt(pos, p.interestRateBPS, tx.Timestamp)
	if add(currentDebt, amount).Cmp(maxBorrow) > 0 {
		return ErrExceedsCapacity
	}
	if amount.Cmp(p.availableLiquidity) > 0 {
		return ErrInsufficientLiquidity
	}

	pos.Principal = add(currentDebt, amount)
	pos.BorrowTimestamp = tx.Timestamp
	pos.CachedRatioBPS = ratio
	p.writePosition(tx, tx.Caller, pos)
	p.setTotalBorrowed(tx, add(p.totalBorrowed, amount))
	p.setAvailableLiquidity(tx, sub(p.availableLiquidity, amount))

	if err := p.borrowToken.Transfer(tx, tx.Caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	tx.Emit(EventBorrowed, BorrowedEvent{
		User:     tx.Caller,
		Amount:   amount.String(),
		RatioBPS: ratio,
	})
	return nil
}

// Repay pulls min(amount, accrued debt) from the caller. Repaying at
// least the stored principal clears the position; a partial repayment
// reduces principal and restarts accrual from now.
func (p *Pool) Repay(tx *chain.Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	pos := p.positions[tx.Caller]
	totalDebt := accruedDebt(pos, p.interestRateBPS, tx.Timestamp)
	if totalDebt.Sign() == 0 {
		return ErrNoDebt
	}

	repayAmount := minBig(amount, totalDebt)
	if err := p.borrowToken.TransferFrom(tx, tx.Caller, p.self, repayAmount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if repayAmount.Cmp(pos.Principal) >= 0 {
		pos.Principal = big.NewInt(0)
		pos.BorrowTimestamp = 0
	} else {
		pos.Principal = sub(pos.Principal, repayAmount)
		pos.BorrowTimestamp = tx.Timestamp
	}
	p.writePosition(tx, tx.Caller, pos)
	p.setTotalBorrowed(tx, sub(p.totalBorrowed, minBig(repayAmount, p.totalBorrowed)))
	p.setAvailableLiquidity(tx, add(p.availableLiquidity, repayAmount))

	tx.Emit(EventRepaid, RepaidEvent{
		User:   tx.Caller,
		Amount: repayAmount.String(),
	})
	return nil
}

// WithdrawCollateral returns collateral to the caller. Only allowed
// while accrued debt is exactly zero.
func (p *Pool) WithdrawCollateral(tx *chain.Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pos := p.positions[tx.Caller]
	if accruedDebt(pos, p.interestRateBPS, tx.Timestamp).Sign() != 0 {
		return ErrDebtOutstanding
	}
	if pos.Collateral == nil || amount.Cmp(pos.Collateral) > 0 {
		return ErrExceedsDeposited
	}
	if err := p.collateralToken.Transfer(tx, tx.Caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	pos.Collateral = sub(pos.Collateral, amount)
	p.writePosition(tx, tx.Caller, pos)
	p.setTotalCollateral(tx, sub(p.totalCollateral, amount))

	tx.Emit(EventCollateralWithdrawn, CollateralWithdrawnEvent{
		User:   tx.Caller,
		Amount: amount.String(),
	})
	return nil
}

// Liquidate is permissionless: the caller repays user's full accrued
// debt and seizes their collateral plus the liquidation bonus, capped at
// the collateral actually deposited.
func (p *Pool) Liquidate(tx *chain.Tx, user chain.Address) error {
	pos := p.positions[user]
	totalDebt := accruedDebt(pos, p.interestRateBPS, tx.Timestamp)
	if healthFactor(pos.Collateral, totalDebt).Cmp(liquidationBPS) >= 0 {
		return ErrPositionHealthy
	}

	collateral := valueOrZero(pos.Collateral)
	if err := p.borrowToken.TransferFrom(tx, tx.Caller, p.self, totalDebt); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	bonus := quo(mul(collateral, bonusMultiplier), bpsDenominator)
	seize := minBig(collateral, add(collateral, bonus))
	if err := p.collateralToken.Transfer(tx, tx.Caller, seize); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	pos.Collateral = big.NewInt(0)
	pos.Principal = big.NewInt(0)
	pos.BorrowTimestamp = 0
	p.writePosition(tx, user, pos)
	p.setTotalCollateral(tx, sub(p.totalCollateral, minBig(collateral, p.totalCollateral)))
	p.setTotalBorrowed(tx, sub(p.totalBorrowed, minBig(totalDebt, p.totalBorrowed)))
	p.setAvailableLiquidity(tx, add(p.availableLiquidity, totalDebt))

	tx.Emit(EventLiquidated, LiquidatedEvent{
		User:             user,
		Liquidator:       tx.Caller,
		DebtRepaid:       totalDebt.String(),
		CollateralSeized: seize.String(),
	})
	return nil
}

// AddLiquidity pulls borrow-token funds from the admin into the pool's
// lendable balance.
func (p *Pool) AddLiquidity(tx *chain.Tx, amount *big.Int) error {
	if !p.isAdmin(tx.Caller) {
		return ErrAdminOnly
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := p.borrowToken.TransferFrom(tx, tx.Caller, p.self, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	p.setAvailableLiquidity(tx, add(p.availableLiquidity, amount))
	return nil
}

func (p *Pool) GetCollateral(user chain.Address) *big.Int {
	return valueOrZero(p.positions[user].Collateral)
}

// GetBorrowed returns the stored principal, interest not yet settled.
func (p *Pool) GetBorrowed(user chain.Address) *big.Int {
	return valueOrZero(p.positions[user].Principal)
}

// GetTotalDebt returns principal plus interest accrued up to now.
func (p *Pool) GetTotalDebt(user chain.Address, now uint64) *big.Int {
	return accruedDebt(p.positions[user], p.interestRateBPS, now)
}

func (p *Pool) GetMaxBorrow(user chain.Address) *big.Int {
	pos := p.positions[user]
	return maxBorrowFor(pos.Collateral, p.oracle.GetCollateralRatio(pos.LinkedScoreHash))
}

func (p *Pool) GetHealthFactor(user chain.Address, now uint64) *big.Int {
	pos := p.positions[user]
	return healthFactor(pos.Collateral, accruedDebt(pos, p.interestRateBPS, now))
}

func (p *Pool) GetPosition(user chain.Address, now uint64) PositionView {
	pos := p.positions[user]
	debt := accruedDebt(pos, p.interestRateBPS, now)
	return PositionView{
		Collateral:     valueOrZero(pos.Collateral),
		TotalDebt:      debt,
		CachedRatioBPS: pos.CachedRatioBPS,
		Liquidatable:   healthFactor(pos.Collateral, debt).Cmp(liquidationBPS) < 0,
	}
}

func (p *Pool) GetAvailableLiquidity() *big.Int {
	return new(big.Int).Set(p.availableLiquidity)
}

func (p *Pool) GetTotalCollateral() *big.Int {
	return new(big.Int).Set(p.totalCollateral)
}

func (p *Pool) GetTotalBorrowed() *big.Int {
	return new(big.Int).Set(p.totalBorrowed)
}

// Accounts lists every address that has ever held a position, sorted
// for deterministic iteration. The liquidation keeper scans this.
func (p *Pool) Accounts() []chain.Address {
	out := make([]chain.Address, 0, len(p.positions))
	for account := range p.positions {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *Pool) isAdmin(account chain.Address) bool {
	return account == p.admin
}

// accruedDebt implements the simple-interest formula
// principal + principal*rate*elapsed/(10000*seconds_per_year). A zero
// borrow timestamp means no accrual: either never borrowed or fully
// repaid. Interest settles into principal only when the borrower calls
// Borrow or Repay, so it compounds at the granularity of those touches.
func accruedDebt(pos Position, rateBPS uint32, now uint64) *big.Int {
	principal := valueOrZero(pos.Principal)
	if principal.Sign() == 0 || pos.BorrowTimestamp == 0 {
		return principal
	}
	var elapsed uint64
	if now > pos.BorrowTimestamp {
		elapsed = now - pos.BorrowTimestamp
	}
	interest := mul(principal, big.NewInt(int64(rateBPS)))
	interest = mul(interest, new(big.Int).SetUint64(elapsed))
	interest = quo(interest, accrualDivisor)
	return add(principal, interest)
}

// healthFactor is collateral*10000/debt, or the 99999 sentinel when the
// position carries no debt.
func healthFactor(collateral, totalDebt *big.Int) *big.Int {
	if totalDebt == nil || totalDebt.Sign() == 0 {
		return big.NewInt(HealthFactorMax)
	}
	return quo(mul(valueOrZero(collateral), bpsDenominator), totalDebt)
}

// maxBorrowFor floors collateral*10000/ratio.
func maxBorrowFor(collateral *big.Int, ratioBPS uint32) *big.Int {
	if ratioBPS == 0 {
		return big.NewInt(0)
	}
	return quo(mul(valueOrZero(collateral), bpsDenominator), big.NewInt(int64(ratioBPS)))
}

func (p *Pool) writePosition(tx *chain.Tx, user chain.Address, pos Position) {
	prev, existed := p.positions[user]
	tx.OnRevert(func() {
		if existed {
			p.positions[user] = prev
		} else {
			delete(p.positions, user)
		}
	})
	p.positions[user] = pos
}

func (p *Pool) setTotalCollateral(tx *chain.Tx, next *big.Int) {
	prev := p.totalCollateral
	tx.OnRevert(func() { p.totalCollateral = prev })
	p.totalCollateral = next
}

func (p *Pool) setTotalBorrowed(tx *chain.Tx, next *big.Int) {
	prev := p.totalBorrowed
	tx.OnRevert(func() { p.totalBorrowed = prev })
	p.totalBorrowed = next
}

func (p *Pool) setAvailableLiquidity(tx *chain.Tx, next *big.Int) {
	prev := p.availableLiquidity
	tx.OnRevert(func() { p.availableLiquidity = prev })
	p.availableLiquidity = next
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func add(a, b *big.Int) *big.Int { return new(big.Int).Add(valueOrZero(a), valueOrZero(b)) }
func sub(a, b *big.Int) *big.Int { return new(big.Int).Sub(valueOrZero(a), valueOrZero(b)) }
func mul(a, b *big.Int) *big.Int { return new(big.Int).Mul(valueOrZero(a), valueOrZero(b)) }
func quo(a, b *big.Int) *big.Int { return new(big.Int).Quo(valueOrZero(a), valueOrZero(b)) }

func minBig(a, b *big.Int) *big.Int {
	if valueOrZero(a).Cmp(valueOrZero(b)) <= 0 {
		return valueOrZero(a)
	}
	return valueOrZero(b)
}
