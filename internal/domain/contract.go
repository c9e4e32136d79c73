package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ContractData is the aggregate read shape exposed by the query surface,
// field-for-field compatible with the original get_contract_data getter.
// SubAdmins, Markets and Predictions are nil (not empty) when the underlying
// collections are empty, matching the nullable cells of the original.
type ContractData struct {
	AdminAddress  common.Address          `json:"adminAddress"`
	SubAdminCount int                     `json:"subAdminCount"`
	SubAdmins     []common.Address        `json:"subAdmins"`
	MarketCount   uint64                  `json:"marketCount"`
	Markets       map[uint64]Market       `json:"markets"`
	Predictions   map[uint64][]Prediction `json:"predictions"`
	Fees          *big.Int                `json:"fees"`
}

// FeeBalances is the per-currency fee accumulator snapshot.
type FeeBalances map[Currency]*big.Int

// Aggregate sums all per-currency balances into one number, the shape the
// contract getter reports.
func (f FeeBalances) Aggregate() *big.Int {
	total := new(big.Int)
	for _, v := range f {
		total.Add(total, v)
	}
	return total
}

// Clone returns a deep copy of the balances.
func (f FeeBalances) Clone() FeeBalances {
	out := make(FeeBalances, len(f))
	for c, v := range f {
		out[c] = new(big.Int).Set(v)
	}
	return out
}
