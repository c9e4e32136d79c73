package ledger

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// ContractData returns the aggregate query snapshot: admin, sub-admin set,
// all markets, all stake records, and the aggregate fee balance. Collections
// are nil when empty, matching the nullable cells of the original getter.
// The snapshot is a deep copy taken under the read lock.
func (l *Ledger) ContractData() domain.ContractData {
	l.mu.RLock()
	defer l.mu.RUnlock()

	subs := l.subAdminList()

	var markets map[uint64]domain.Market
	if len(l.markets) > 0 {
		markets = make(map[uint64]domain.Market, len(l.markets))
		for id, m := range l.markets {
			markets[id] = m.Clone()
		}
	}

	var predictions map[uint64][]domain.Prediction
	for id, ps := range l.stakes {
		if len(ps) == 0 {
			continue
		}
		if predictions == nil {
			predictions = make(map[uint64][]domain.Prediction, len(l.stakes))
		}
		predictions[id] = clonePredictions(ps)
	}

	return domain.ContractData{
		AdminAddress:  l.admin,
		SubAdminCount: len(subs),
		SubAdmins:     subs,
		MarketCount:   l.nextID,
		Markets:       markets,
		Predictions:   predictions,
		Fees:          l.fees.Aggregate(),
	}
}

// Restore replaces the ledger state with persisted records, used once at
// startup to rehydrate from the store. Sequential id allocation continues
// from the highest restored market id.
func (l *Ledger) Restore(markets []domain.Market, predictions []domain.Prediction, subAdmins []common.Address, fees domain.FeeBalances) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.markets = make(map[uint64]*domain.Market, len(markets))
	l.orders = make([]uint64, 0, len(markets))
	l.stakes = make(map[uint64][]domain.Prediction, len(markets))
	l.payouts = make(map[uint64][]domain.Payout)
	l.nextID = 0

	for _, m := range markets {
		cp := m.Clone()
		if cp.Pools == nil {
			cp.Pools = make(map[domain.Currency]domain.Pool, 2)
		}
		for _, c := range domain.Currencies() {
			if cp.Pools[c].Yes == nil {
				cp.Pools[c] = domain.NewPool()
			}
		}
		l.markets[cp.ID] = &cp
		l.orders = append(l.orders, cp.ID)
		if cp.ID >= l.nextID {
			l.nextID = cp.ID + 1
		}
	}

	sort.Slice(l.orders, func(i, j int) bool { return l.orders[i] < l.orders[j] })

	for _, p := range predictions {
		if _, ok := l.markets[p.MarketID]; !ok {
			continue
		}
		l.stakes[p.MarketID] = append(l.stakes[p.MarketID], p.Clone())
	}

	l.subAdmins = make(map[common.Address]struct{}, len(subAdmins))
	for _, a := range subAdmins {
		if a == l.admin {
			continue
		}
		l.subAdmins[a] = struct{}{}
	}

	for _, c := range domain.Currencies() {
		if v, ok := fees[c]; ok && v != nil {
			l.fees[c] = new(big.Int).Set(v)
		} else {
			l.fees[c] = new(big.Int)
		}
	}
}
