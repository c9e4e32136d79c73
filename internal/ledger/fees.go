package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// WithdrawFees decrements the accumulator for the given currency. Only the
// root admin may withdraw; the actual transfer to the admin is the caller's
// (external) concern. It returns the remaining balance.
func (l *Ledger) WithdrawFees(caller common.Address, currency domain.Currency, amount *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return nil, domain.ErrUnauthorized
	}
	if !domain.ValidCurrency(currency) {
		return nil, domain.ErrInvalidCurrency
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	balance := l.fees[currency]
	if amount.Cmp(balance) > 0 {
		return nil, domain.ErrInsufficientFees
	}

	balance.Sub(balance, amount)
	return new(big.Int).Set(balance), nil
}

// Fees returns a deep copy of the per-currency fee accumulator.
func (l *Ledger) Fees() domain.FeeBalances {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fees.Clone()
}
