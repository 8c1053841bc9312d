package state

import (
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "arns/core/errors"
	"arns/crypto"
)

const opLedger = "state.ledger"

// Balance returns the spendable balance of addr.
func (r *Registry) Balance(addr crypto.Address) *big.Int {
	return r.balanceKey(addr.String())
}

func (r *Registry) balanceKey(key string) *big.Int {
	if balance, ok := r.Balances[key]; ok && balance != nil {
		return balance.ToBig()
	}
	return big.NewInt(0)
}

// SetBalance overwrites the balance of addr. Used for genesis allocations and
// tests.
func (r *Registry) SetBalance(addr crypto.Address, amount *big.Int) error {
	if addr.IsZero() {
		return coreerrors.New(coreerrors.KindInvalidInput, opLedger, "address required")
	}
	return r.setBalanceKey(addr.String(), amount)
}

func (r *Registry) setBalanceKey(key string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.New(coreerrors.KindInvalidInput, opLedger, "balance must not be negative")
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return coreerrors.New(coreerrors.KindInvalidInput, opLedger, "balance overflow")
	}
	if value.IsZero() {
		delete(r.Balances, key)
		return nil
	}
	r.Balances[key] = value
	return nil
}

// HasSufficientBalance reports whether addr can cover amount.
func (r *Registry) HasSufficientBalance(addr crypto.Address, amount *big.Int) bool {
	if amount == nil || amount.Sign() <= 0 {
		return true
	}
	return r.Balance(addr).Cmp(amount) >= 0
}

// Debit removes amount from addr.
func (r *Registry) Debit(addr crypto.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	current := r.Balance(addr)
	if current.Cmp(amount) < 0 {
		return coreerrors.Newf(coreerrors.KindInsufficientFunds, opLedger,
			"balance %s below %s", current, amount)
	}
	return r.setBalanceKey(addr.String(), current.Sub(current, amount))
}

// Credit adds amount to addr.
func (r *Registry) Credit(addr crypto.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if addr.IsZero() {
		return coreerrors.New(coreerrors.KindInvalidState, opLedger, "credit to empty address")
	}
	next := new(big.Int).Add(r.Balance(addr), amount)
	if _, overflow := uint256.FromBig(next); overflow {
		return coreerrors.New(coreerrors.KindInvalidState, opLedger, "balance overflow")
	}
	return r.setBalanceKey(addr.String(), next)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.New(coreerrors.KindInvalidInput, opLedger, "amount must not be negative")
	}
	return nil
}
