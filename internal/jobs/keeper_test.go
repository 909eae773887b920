package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/lending"
)

type fakeScanner struct {
	now      uint64
	accounts []chain.Address
	health   map[chain.Address]*big.Int
}

func (f *fakeScanner) NowUnix() uint64           { return f.now }
func (f *fakeScanner) Accounts() []chain.Address { return f.accounts }

func (f *fakeScanner) GetHealthFactor(user chain.Address, _ uint64) *big.Int {
	if hf, ok := f.health[user]; ok {
		return hf
	}
	return big.NewInt(int64(lending.HealthFactorMax))
}

type fakeLiquidator struct {
	calls []chain.Address
	fail  map[chain.Address]error
}

func (f *fakeLiquidator) Liquidate(_, user chain.Address) (*chain.Receipt, error) {
	f.calls = append(f.calls, user)
	if err, ok := f.fail[user]; ok {
		return nil, err
	}
	return &chain.Receipt{TxHash: "0xabc"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKeeperLiquidatesOnlyUnhealthyPositions(t *testing.T) {
	scanner := &fakeScanner{
		now:      1_700_000_000,
		accounts: []chain.Address{"alice", "bob", "carol"},
		health: map[chain.Address]*big.Int{
			"alice": big.NewInt(12000),
			"bob":   big.NewInt(9500),
			"carol": big.NewInt(10000),
		},
	}
	liq := &fakeLiquidator{}

	keeper := NewKeeper(scanner, liq, "keeper", discardLogger())
	n, err := keeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 liquidation, got %d", n)
	}
	if len(liq.calls) != 1 || liq.calls[0] != "bob" {
		t.Fatalf("expected liquidation of bob only, got %v", liq.calls)
	}
}

func TestKeeperContinuesAfterFailedLiquidation(t *testing.T) {
	scanner := &fakeScanner{
		now:      1_700_000_000,
		accounts: []chain.Address{"alice", "bob"},
		health: map[chain.Address]*big.Int{
			"alice": big.NewInt(8000),
			"bob":   big.NewInt(9000),
		},
	}
	liq := &fakeLiquidator{
		fail: map[chain.Address]error{
			"alice": errors.New("transfer_failed: insufficient_balance"),
		},
	}

	keeper := NewKeeper(scanner, liq, "keeper", discardLogger())
	n, err := keeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 successful liquidation, got %d", n)
	}
	if len(liq.calls) != 2 {
		t.Fatalf("expected both unhealthy accounts attempted, got %v", liq.calls)
	}
}

func TestKeeperTreatsHealthyRevertAsBenign(t *testing.T) {
	scanner := &fakeScanner{
		now:      1_700_000_000,
		accounts: []chain.Address{"alice"},
		health: map[chain.Address]*big.Int{
			"alice": big.NewInt(9999),
		},
	}
	liq := &fakeLiquidator{
		fail: map[chain.Address]error{"alice": lending.ErrPositionHealthy},
	}

	keeper := NewKeeper(scanner, liq, "keeper", discardLogger())
	n, err := keeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no liquidations counted, got %d", n)
	}
}

func TestKeeperStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := &fakeScanner{accounts: []chain.Address{"alice"}}
	keeper := NewKeeper(scanner, &fakeLiquidator{}, "keeper", discardLogger())
	if _, err := keeper.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
