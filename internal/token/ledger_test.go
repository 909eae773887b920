package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

func TestMoveDebitsAndCredits(t *testing.T) {
	env := chain.NewEnv()
	ledger := NewLedger("tUSD")
	ledger.Mint("alice", big.NewInt(500))

	if _, err := env.Execute("alice", func(tx *chain.Tx) error {
		return ledger.Move(tx, "alice", "bob", big.NewInt(200))
	}); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if ledger.BalanceOf("alice").Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("alice balance %s", ledger.BalanceOf("alice"))
	}
	if ledger.BalanceOf("bob").Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("bob balance %s", ledger.BalanceOf("bob"))
	}
}

func TestMoveInsufficientBalance(t *testing.T) {
	env := chain.NewEnv()
	ledger := NewLedger("tUSD")
	ledger.Mint("alice", big.NewInt(100))

	_, err := env.Execute("alice", func(tx *chain.Tx) error {
		return ledger.Move(tx, "alice", "bob", big.NewInt(101))
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient_balance, got %v", err)
	}
	if ledger.BalanceOf("alice").Cmp(big.NewInt(100)) != 0 {
		t.Fatal("balance changed on failed move")
	}
}

func TestMoveRevertsWithFailedOperation(t *testing.T) {
	env := chain.NewEnv()
	ledger := NewLedger("tUSD")
	ledger.Mint("alice", big.NewInt(100))

	boom := errors.New("later_step_failed")
	_, err := env.Execute("alice", func(tx *chain.Tx) error {
		if err := ledger.Move(tx, "alice", "bob", big.NewInt(60)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.BalanceOf("alice").Cmp(big.NewInt(100)) != 0 || ledger.BalanceOf("bob").Sign() != 0 {
		t.Fatal("transfer survived a reverted operation")
	}
}

func TestBoundCapability(t *testing.T) {
	env := chain.NewEnv()
	ledger := NewLedger("tBTC")
	ledger.Mint("pool", big.NewInt(100))
	ledger.Mint("carol", big.NewInt(50))
	bound := ledger.BoundTo("pool")

	if _, err := env.Execute("carol", func(tx *chain.Tx) error {
		if err := bound.Transfer(tx, "carol", big.NewInt(10)); err != nil {
			return err
		}
		return bound.TransferFrom(tx, "carol", "pool", big.NewInt(30))
	}); err != nil {
		t.Fatalf("bound transfers failed: %v", err)
	}
	if ledger.BalanceOf("pool").Cmp(big.NewInt(120)) != 0 {
		t.Fatalf("pool balance %s", ledger.BalanceOf("pool"))
	}
	if ledger.BalanceOf("carol").Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("carol balance %s", ledger.BalanceOf("carol"))
	}
}

func TestCreditIsJournaled(t *testing.T) {
	env := chain.NewEnv()
	ledger := NewLedger("tBTC")

	boom := errors.New("later_step_failed")
	_, err := env.Execute("dave", func(tx *chain.Tx) error {
		ledger.Credit(tx, "dave", big.NewInt(500))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.BalanceOf("dave").Sign() != 0 {
		t.Fatal("credit survived a reverted operation")
	}

	if _, err := env.Execute("dave", func(tx *chain.Tx) error {
		ledger.Credit(tx, "dave", big.NewInt(500))
		return nil
	}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if ledger.BalanceOf("dave").Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("dave balance %s", ledger.BalanceOf("dave"))
	}
}
