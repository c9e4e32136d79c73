package ledger

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/oddslab/predictd/internal/domain"
)

// PlaceBet atomically increments the market's pool for (side, currency) and
// appends a stake record. The market must be Open; the amount must be a
// positive number of minor units. Repeated bets are separate records, never
// merged. It returns the new prediction and the updated market snapshot.
func (l *Ledger) PlaceBet(marketID uint64, bettor common.Address, side domain.Side, currency domain.Currency, amount *big.Int) (domain.Prediction, domain.Market, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.markets[marketID]
	if !ok {
		return domain.Prediction{}, domain.Market{}, domain.ErrMarketNotFound
	}
	if m.StateAt(l.now()) != domain.MarketStateOpen {
		return domain.Prediction{}, domain.Market{}, domain.ErrMarketClosed
	}
	if !domain.ValidSide(side) {
		return domain.Prediction{}, domain.Market{}, domain.ErrInvalidSide
	}
	if !domain.ValidCurrency(currency) {
		return domain.Prediction{}, domain.Market{}, domain.ErrInvalidCurrency
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.Prediction{}, domain.Market{}, domain.ErrInvalidAmount
	}

	p := domain.Prediction{
		ID:       uuid.New().String(),
		MarketID: marketID,
		Bettor:   bettor,
		Side:     side,
		Currency: currency,
		Amount:   new(big.Int).Set(amount),
		PlacedAt: time.Unix(l.now(), 0).UTC(),
	}

	pool := m.Pools[currency]
	pool.SideAmount(side).Add(pool.SideAmount(side), p.Amount)
	l.stakes[marketID] = append(l.stakes[marketID], p)

	return p.Clone(), m.Clone(), nil
}

// Predictions returns deep copies of the stake records for a market, in
// placement order.
func (l *Ledger) Predictions(marketID uint64) ([]domain.Prediction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.markets[marketID]; !ok {
		return nil, domain.ErrMarketNotFound
	}
	return clonePredictions(l.stakes[marketID]), nil
}

func clonePredictions(in []domain.Prediction) []domain.Prediction {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Prediction, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
