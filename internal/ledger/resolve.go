package ledger

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

const bpsDenominator = 10_000

// Resolve fixes the outcome of a closed market and computes the settlement.
// The caller must be the admin or a sub-admin, the market must have passed
// its close time, and the outcome must be yes or no.
//
// Per currency, independently: the protocol fee is floor(total * feeRateBps
// / 10000) of the combined pool; each winning stake is paid floor((total -
// fee) * stake / winningPool). Rounding remainders, and the entire
// distributable amount when nobody backed the winning side, are swept into
// the fee accumulator rather than left unaccounted.
//
// The Closed -> Resolved transition is exclusive: of two concurrent resolve
// attempts exactly one commits, the other observes ErrAlreadyResolved.
func (l *Ledger) Resolve(caller common.Address, marketID uint64, outcome domain.Outcome) (domain.Settlement, domain.Market, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isPrivileged(caller) {
		return domain.Settlement{}, domain.Market{}, domain.ErrUnauthorized
	}
	m, ok := l.markets[marketID]
	if !ok {
		return domain.Settlement{}, domain.Market{}, domain.ErrMarketNotFound
	}
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return domain.Settlement{}, domain.Market{}, domain.ErrInvalidOutcome
	}
	if m.Resolved {
		return domain.Settlement{}, domain.Market{}, domain.ErrAlreadyResolved
	}
	if l.now() < m.CloseTime {
		return domain.Settlement{}, domain.Market{}, domain.ErrMarketNotClosed
	}

	settlement := l.settle(m, outcome, caller)

	m.Outcome = outcome
	m.Resolved = true
	l.payouts[marketID] = settlement.Payouts

	return cloneSettlement(settlement), m.Clone(), nil
}

// settle computes fees, payouts, and sweeps for every currency. Must be
// called with the write lock held; it mutates the fee accumulator.
func (l *Ledger) settle(m *domain.Market, outcome domain.Outcome, caller common.Address) domain.Settlement {
	winSide := outcome.WinningSide()
	rate := big.NewInt(l.feeRateBps)
	denom := big.NewInt(bpsDenominator)

	s := domain.Settlement{
		MarketID:   m.ID,
		Outcome:    outcome,
		ResolvedBy: caller,
		ResolvedAt: time.Unix(l.now(), 0).UTC(),
		Fee:        make(map[domain.Currency]*big.Int, 2),
		Swept:      make(map[domain.Currency]*big.Int, 2),
	}

	for _, c := range domain.Currencies() {
		pool := m.Pools[c]
		total := pool.Total()

		fee := new(big.Int).Mul(total, rate)
		fee.Quo(fee, denom)
		distributable := new(big.Int).Sub(total, fee)
		winning := pool.SideAmount(winSide)

		paid := new(big.Int)
		if winning.Sign() > 0 {
			for _, p := range l.stakes[m.ID] {
				if p.Currency != c || p.Side != winSide {
					continue
				}
				amount := new(big.Int).Mul(distributable, p.Amount)
				amount.Quo(amount, winning)
				paid.Add(paid, amount)
				s.Payouts = append(s.Payouts, domain.Payout{
					PredictionID: p.ID,
					MarketID:     m.ID,
					Bettor:       p.Bettor,
					Currency:     c,
					Amount:       amount,
				})
			}
		}

		// Anything not paid out stays with the protocol: the rounding
		// remainder, or the whole distributable amount when the winning
		// pool is empty.
		swept := new(big.Int).Sub(distributable, paid)

		s.Fee[c] = fee
		s.Swept[c] = swept
		l.fees[c].Add(l.fees[c], fee)
		l.fees[c].Add(l.fees[c], swept)
	}

	return s
}

// Payouts returns deep copies of the payouts computed for a resolved market.
// It returns an empty slice for markets that are not resolved yet.
func (l *Ledger) Payouts(marketID uint64) ([]domain.Payout, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.markets[marketID]; !ok {
		return nil, domain.ErrMarketNotFound
	}
	return clonePayouts(l.payouts[marketID]), nil
}

func clonePayouts(in []domain.Payout) []domain.Payout {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Payout, len(in))
	for i, p := range in {
		cp := p
		cp.Amount = new(big.Int).Set(p.Amount)
		out[i] = cp
	}
	return out
}

func cloneSettlement(s domain.Settlement) domain.Settlement {
	out := s
	out.Fee = make(map[domain.Currency]*big.Int, len(s.Fee))
	for c, v := range s.Fee {
		out.Fee[c] = new(big.Int).Set(v)
	}
	out.Swept = make(map[domain.Currency]*big.Int, len(s.Swept))
	for c, v := range s.Swept {
		out.Swept[c] = new(big.Int).Set(v)
	}
	out.Payouts = clonePayouts(s.Payouts)
	return out
}
