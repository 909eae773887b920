// Package token provides the in-process fungible token the devnet and
// tests use. The lending pool only ever sees the minimal transfer
// capability; a production token lives elsewhere.
package token

import (
	"errors"
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
)

var ErrInsufficientBalance = errors.New("insufficient_balance")

// Ledger is a balance map with journaled transfers: a transfer performed
// inside an operation that later fails is undone with the rest of the
// operation's writes.
type Ledger struct {
	symbol   string
	balances map[chain.Address]*big.Int
}

func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:   symbol,
		balances: map[chain.Address]*big.Int{},
	}
}

func (l *Ledger) Symbol() string {
	return l.symbol
}

// Mint credits an account outside of any operation. Deployment-time
// setup only, before any concurrent caller exists; runtime credits go
// through Credit inside an operation.
func (l *Ledger) Mint(account chain.Address, amount *big.Int) {
	l.balances[account] = new(big.Int).Add(l.balanceOf(account), amount)
}

// Credit mints amount to account within tx, journaled like any other
// write.
func (l *Ledger) Credit(tx *chain.Tx, account chain.Address, amount *big.Int) {
	l.write(tx, account, new(big.Int).Add(l.balanceOf(account), amount))
}

func (l *Ledger) BalanceOf(account chain.Address) *big.Int {
	return new(big.Int).Set(l.balanceOf(account))
}

// Move transfers amount between accounts within tx. Fails without any
// state change when the sender's balance is short.
func (l *Ledger) Move(tx *chain.Tx, from, to chain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInsufficientBalance
	}
	fromBal := l.balanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.write(tx, from, new(big.Int).Sub(fromBal, amount))
	l.write(tx, to, new(big.Int).Add(l.balanceOf(to), amount))
	return nil
}

// BoundTo returns the transfer capability for a holder account: Transfer
// spends the holder's own balance, TransferFrom moves third-party funds.
// The lending pool is constructed with its tokens bound to its own
// address.
func (l *Ledger) BoundTo(holder chain.Address) *Bound {
	return &Bound{ledger: l, holder: holder}
}

type Bound struct {
	ledger *Ledger
	holder chain.Address
}

func (b *Bound) Transfer(tx *chain.Tx, to chain.Address, amount *big.Int) error {
	return b.ledger.Move(tx, b.holder, to, amount)
}

func (b *Bound) TransferFrom(tx *chain.Tx, from, to chain.Address, amount *big.Int) error {
	return b.ledger.Move(tx, from, to, amount)
}

func (l *Ledger) balanceOf(account chain.Address) *big.Int {
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return big.NewInt(0)
}

// Stored balances are never mutated in place, so the journal can keep
// the old *big.Int as the revert value.
func (l *Ledger) write(tx *chain.Tx, account chain.Address, next *big.Int) {
	prev, existed := l.balances[account]
	tx.OnRevert(func() {
		if existed {
			l.balances[account] = prev
		} else {
			delete(l.balances, account)
		}
	})
	l.balances[account] = next
}
