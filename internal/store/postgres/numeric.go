package postgres

import (
	"fmt"
	"math/big"
)

// Amounts travel to and from NUMERIC(78,0) columns as decimal strings:
// parameters are passed as strings and the server casts, selects append
// ::text so rows scan into plain strings.

func encodeAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: invalid numeric %q", s)
	}
	return v, nil
}
