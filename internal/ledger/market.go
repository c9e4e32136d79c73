package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// CreateMarket allocates the next sequential market id and inserts an Open
// market with zero-initialized pools for every supported currency. The caller
// must be the admin or a sub-admin. Backdated start times are permitted; the
// close time must be strictly after the start time.
func (l *Ledger) CreateMarket(caller common.Address, question string, startTime, closeTime int64) (domain.Market, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isPrivileged(caller) {
		return domain.Market{}, domain.ErrUnauthorized
	}
	if closeTime <= startTime {
		return domain.Market{}, domain.ErrInvalidTimeRange
	}

	pools := make(map[domain.Currency]domain.Pool, 2)
	for _, c := range domain.Currencies() {
		pools[c] = domain.NewPool()
	}

	m := &domain.Market{
		ID:        l.nextID,
		Question:  question,
		StartTime: startTime,
		CloseTime: closeTime,
		Pools:     pools,
		Outcome:   domain.OutcomeUnresolved,
		CreatedBy: caller,
		CreatedAt: time.Unix(l.now(), 0).UTC(),
	}
	l.markets[m.ID] = m
	l.orders = append(l.orders, m.ID)
	l.nextID++

	return m.Clone(), nil
}

// Market returns a deep copy of the market with the given id.
func (l *Ledger) Market(id uint64) (domain.Market, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return m.Clone(), nil
}

// MarketView returns the single-market query shape (primary-currency pools,
// 0/1/2 outcome code) for the given id.
func (l *Ledger) MarketView(id uint64) (domain.MarketView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.markets[id]
	if !ok {
		return domain.MarketView{}, domain.ErrMarketNotFound
	}
	return m.View(), nil
}

// MarketState derives the lifecycle state of the given market at the current
// clock reading.
func (l *Ledger) MarketState(id uint64) (domain.MarketState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.markets[id]
	if !ok {
		return "", domain.ErrMarketNotFound
	}
	return m.StateAt(l.now()), nil
}

// Markets returns deep copies of all markets in creation order, paginated.
func (l *Ledger) Markets(opts domain.ListOpts) []domain.Market {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.orders
	if opts.Offset > 0 {
		if opts.Offset >= len(ids) {
			return nil
		}
		ids = ids[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}

	out := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.markets[id].Clone())
	}
	return out
}

// MarketCount returns the number of markets ever created.
func (l *Ledger) MarketCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID
}
