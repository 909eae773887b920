// Package gateway adapts the in-process contracts to the API surface:
// each method wraps one contract operation in an atomic execution on
// behalf of an authenticated caller.
package gateway

import (
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/lending"
	"github.com/TwigaDEVs/BitCred/internal/registry"
)

type Gateway struct {
	env      *chain.Env
	registry *registry.Registry
	pool     *lending.Pool
}

func New(env *chain.Env, reg *registry.Registry, pool *lending.Pool) *Gateway {
	return &Gateway{env: env, registry: reg, pool: pool}
}

func (g *Gateway) RegisterScore(caller chain.Address, id chain.Hash, score uint16, proof []*big.Int) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.registry.RegisterScore(tx, id, score, proof)
	})
}

func (g *Gateway) UpdateScore(caller chain.Address, id chain.Hash, score uint16, proof []*big.Int) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.registry.UpdateScore(tx, id, score, proof)
	})
}

func (g *Gateway) ApproveScorer(caller, account chain.Address) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.registry.ApproveScorer(tx, account)
	})
}

func (g *Gateway) RevokeScorer(caller, account chain.Address) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.registry.RevokeScorer(tx, account)
	})
}

func (g *Gateway) AddLiquidity(caller chain.Address, amount *big.Int) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.pool.AddLiquidity(tx, amount)
	})
}

func (g *Gateway) DepositCollateral(caller chain.Address, amount *big.Int, id chain.Hash) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.pool.DepositCollateral(tx, amount, id)
	})
}

func (g *Gateway) Borrow(caller chain.Address, amount *big.Int) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.pool.Borrow(tx, amount)
	})
}

func (g *Gateway) Repay(caller chain.Address, amount *big.Int) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.pool.Repay(tx, amount)
	})
}

func (g *Gateway) WithdrawCollateral(caller chain.Address, amount *big.Int) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.pool.WithdrawCollateral(tx, amount)
	})
}

func (g *Gateway) Liquidate(caller, user chain.Address) (*chain.Receipt, error) {
	return g.env.Execute(caller, func(tx *chain.Tx) error {
		return g.pool.Liquidate(tx, user)
	})
}

func (g *Gateway) NowUnix() uint64 {
	return g.env.NowUnix()
}

// Reads run under Env.View: contract state has no locking of its own,
// so request goroutines and the keeper must take the same lock Execute
// holds for writes.

func (g *Gateway) GetPosition(user chain.Address, now uint64) lending.PositionView {
	var out lending.PositionView
	g.env.View(func() { out = g.pool.GetPosition(user, now) })
	return out
}

func (g *Gateway) GetHealthFactor(user chain.Address, now uint64) *big.Int {
	var out *big.Int
	g.env.View(func() { out = g.pool.GetHealthFactor(user, now) })
	return out
}

func (g *Gateway) GetMaxBorrow(user chain.Address) *big.Int {
	var out *big.Int
	g.env.View(func() { out = g.pool.GetMaxBorrow(user) })
	return out
}

func (g *Gateway) GetBorrowed(user chain.Address) *big.Int {
	var out *big.Int
	g.env.View(func() { out = g.pool.GetBorrowed(user) })
	return out
}

func (g *Gateway) Accounts() []chain.Address {
	var out []chain.Address
	g.env.View(func() { out = g.pool.Accounts() })
	return out
}

func (g *Gateway) GetAvailableLiquidity() *big.Int {
	var out *big.Int
	g.env.View(func() { out = g.pool.GetAvailableLiquidity() })
	return out
}

func (g *Gateway) GetTotalCollateral() *big.Int {
	var out *big.Int
	g.env.View(func() { out = g.pool.GetTotalCollateral() })
	return out
}

func (g *Gateway) GetTotalBorrowed() *big.Int {
	var out *big.Int
	g.env.View(func() { out = g.pool.GetTotalBorrowed() })
	return out
}

func (g *Gateway) GetScore(id chain.Hash) uint16 {
	var out uint16
	g.env.View(func() { out = g.registry.GetScore(id) })
	return out
}

func (g *Gateway) GetScoreTier(id chain.Hash) uint8 {
	var out uint8
	g.env.View(func() { out = g.registry.GetScoreTier(id) })
	return out
}

func (g *Gateway) GetCollateralRatio(id chain.Hash) uint32 {
	var out uint32
	g.env.View(func() { out = g.registry.GetCollateralRatio(id) })
	return out
}

func (g *Gateway) GetOwner(id chain.Hash) chain.Address {
	var out chain.Address
	g.env.View(func() { out = g.registry.GetOwner(id) })
	return out
}

func (g *Gateway) GetLastUpdated(id chain.Hash) uint64 {
	var out uint64
	g.env.View(func() { out = g.registry.GetLastUpdated(id) })
	return out
}

func (g *Gateway) IsApprovedScorer(account chain.Address) bool {
	var out bool
	g.env.View(func() { out = g.registry.IsApprovedScorer(account) })
	return out
}
