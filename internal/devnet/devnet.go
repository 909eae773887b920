// Package devnet assembles an in-process deployment of the BitCred
// contracts: environment, tokens, score registry, and lending pool,
// wired the way the deploy script sets them up on a real network.
package devnet

import (
	"fmt"
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/lending"
	"github.com/TwigaDEVs/BitCred/internal/registry"
	"github.com/TwigaDEVs/BitCred/internal/token"
)

// PoolAddress is the lending pool's own account, holder of deposited
// collateral and lendable liquidity.
const PoolAddress chain.Address = "bitcred:lending_pool"

type Config struct {
	Admin            chain.Address
	InterestRateBPS  uint32
	InitialLiquidity *big.Int
}

type World struct {
	Env             *chain.Env
	Registry        *registry.Registry
	Pool            *lending.Pool
	CollateralToken *token.Ledger
	BorrowToken     *token.Ledger
	Admin           chain.Address
}

// Deploy constructs the full world. When InitialLiquidity is set the
// admin is minted that much borrow token and it is pushed into the pool
// in the first transaction.
func Deploy(cfg Config) (*World, error) {
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("missing_admin_address")
	}
	if cfg.InterestRateBPS == 0 {
		return nil, fmt.Errorf("missing_interest_rate")
	}

	env := chain.NewEnv()
	collateral := token.NewLedger("tBTC")
	borrow := token.NewLedger("tUSD")
	reg := registry.New(cfg.Admin)
	pool := lending.NewPool(
		PoolAddress,
		cfg.Admin,
		reg,
		collateral.BoundTo(PoolAddress),
		borrow.BoundTo(PoolAddress),
		cfg.InterestRateBPS,
	)

	w := &World{
		Env:             env,
		Registry:        reg,
		Pool:            pool,
		CollateralToken: collateral,
		BorrowToken:     borrow,
		Admin:           cfg.Admin,
	}

	if cfg.InitialLiquidity != nil && cfg.InitialLiquidity.Sign() > 0 {
		borrow.Mint(cfg.Admin, cfg.InitialLiquidity)
		_, err := env.Execute(cfg.Admin, func(tx *chain.Tx) error {
			return pool.AddLiquidity(tx, cfg.InitialLiquidity)
		})
		if err != nil {
			return nil, fmt.Errorf("seed_liquidity: %w", err)
		}
	}
	return w, nil
}
