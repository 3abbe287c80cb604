// Package ledger is the token ledger the vesting engine pays out of. Balances
// live in the same LevelDB key space as the schedules, so a ledger bound to a
// transaction moves value in the same commit as the bookkeeping.
package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"vesting-project/db"
)

const (
	balancePrefix  = "balance:"
	totalSupplyKey = "meta:total_supply"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransfer     = errors.New("invalid transfer amount")
	ErrAlreadyMinted       = errors.New("supply already minted")
)

// Ledger holds the vesting custody balance and moves value out of it
type Ledger interface {
	// Transfer moves amount from custody to the given address
	Transfer(to string, amount *big.Int) error
	BalanceOf(address string) (*big.Int, error)
	// Custody returns the address holding the vesting balance
	Custody() string
	// Mint issues the total supply into custody. It may be called only once.
	Mint(amount *big.Int) error
	TotalSupply() (*big.Int, error)
}

// Factory binds a Ledger to a read or write view of the store
type Factory func(kv db.KV) Ledger

// NewFactory returns a Factory for KVLedgers paying out of custody
func NewFactory(custody string) Factory {
	return func(kv db.KV) Ledger {
		return NewKVLedger(kv, custody)
	}
}

// KVLedger stores balances as decimal strings under balance:<address>
type KVLedger struct {
	kv      db.KV
	custody string
}

func NewKVLedger(kv db.KV, custody string) *KVLedger {
	return &KVLedger{kv: kv, custody: custody}
}

func (l *KVLedger) Custody() string {
	return l.custody
}

func (l *KVLedger) BalanceOf(address string) (*big.Int, error) {
	data, err := l.kv.Get([]byte(balancePrefix + address))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	balance, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance for %s", address)
	}
	return balance, nil
}

func (l *KVLedger) Transfer(to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidTransfer
	}
	if to == l.custody {
		return fmt.Errorf("%w: transfer to custody", ErrInvalidTransfer)
	}

	from, err := l.BalanceOf(l.custody)
	if err != nil {
		return err
	}
	if from.Cmp(amount) < 0 {
		return fmt.Errorf("%w: custody holds %s, need %s", ErrInsufficientBalance, from, amount)
	}
	dest, err := l.BalanceOf(to)
	if err != nil {
		return err
	}

	if err := l.setBalance(l.custody, from.Sub(from, amount)); err != nil {
		return err
	}
	return l.setBalance(to, dest.Add(dest, amount))
}

func (l *KVLedger) Mint(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidTransfer
	}
	minted, err := l.kv.Has([]byte(totalSupplyKey))
	if err != nil {
		return err
	}
	if minted {
		return ErrAlreadyMinted
	}
	if err := l.kv.Put([]byte(totalSupplyKey), []byte(amount.String())); err != nil {
		return err
	}
	return l.setBalance(l.custody, amount)
}

// TotalSupply returns the minted supply, zero before Mint
func (l *KVLedger) TotalSupply() (*big.Int, error) {
	data, err := l.kv.Get([]byte(totalSupplyKey))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	supply, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, errors.New("corrupt total supply")
	}
	return supply, nil
}

func (l *KVLedger) setBalance(address string, balance *big.Int) error {
	return l.kv.Put([]byte(balancePrefix+address), []byte(balance.String()))
}
