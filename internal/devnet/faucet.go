package devnet

import (
	"errors"
	"math/big"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/token"
)

var ErrUnknownToken = errors.New("unknown_token")

// Faucet credits devnet test tokens. Each drip runs as its own chain
// operation so it serializes with transfers and is journaled like every
// other balance write.
type Faucet struct {
	env     *chain.Env
	ledgers map[string]*token.Ledger
}

func NewFaucet(env *chain.Env, ledgers ...*token.Ledger) *Faucet {
	bySymbol := make(map[string]*token.Ledger, len(ledgers))
	for _, l := range ledgers {
		bySymbol[l.Symbol()] = l
	}
	return &Faucet{env: env, ledgers: bySymbol}
}

// Drip mints amount of the named token to account and returns the
// resulting balance.
func (f *Faucet) Drip(account chain.Address, symbol string, amount *big.Int) (*big.Int, error) {
	ledger, ok := f.ledgers[symbol]
	if !ok {
		return nil, ErrUnknownToken
	}

	var balance *big.Int
	_, err := f.env.Execute(account, func(tx *chain.Tx) error {
		ledger.Credit(tx, account, amount)
		balance = ledger.BalanceOf(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}
