package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddslab/predictd/internal/domain"
)

// FeeStore implements domain.FeeStore using PostgreSQL.
type FeeStore struct {
	pool *pgxpool.Pool
}

// NewFeeStore creates a new FeeStore backed by the given connection pool.
func NewFeeStore(pool *pgxpool.Pool) *FeeStore {
	return &FeeStore{pool: pool}
}

var _ domain.FeeStore = (*FeeStore)(nil)

// SetBalance upserts the accumulator row for one currency.
func (s *FeeStore) SetBalance(ctx context.Context, c domain.Currency, balance *big.Int) error {
	const query = `
		INSERT INTO fee_balances (currency, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (currency) DO UPDATE SET
			balance    = EXCLUDED.balance,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, string(c), encodeAmount(balance))
	if err != nil {
		return fmt.Errorf("postgres: set fee balance %s: %w", c, err)
	}
	return nil
}

// Load returns the full per-currency accumulator. Currencies without a row
// report a zero balance.
func (s *FeeStore) Load(ctx context.Context) (domain.FeeBalances, error) {
	rows, err := s.pool.Query(ctx, `SELECT currency, balance::text FROM fee_balances`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load fee balances: %w", err)
	}
	defer rows.Close()

	balances := make(domain.FeeBalances, 2)
	for _, c := range domain.Currencies() {
		balances[c] = new(big.Int)
	}
	for rows.Next() {
		var currency, balance string
		if err := rows.Scan(&currency, &balance); err != nil {
			return nil, fmt.Errorf("postgres: scan fee balance: %w", err)
		}
		v, err := decodeAmount(balance)
		if err != nil {
			return nil, err
		}
		balances[domain.Currency(currency)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load fee balances rows: %w", err)
	}
	return balances, nil
}

// RecordWithdrawal appends one withdrawal to the history.
func (s *FeeStore) RecordWithdrawal(ctx context.Context, w domain.FeeWithdrawal) error {
	const query = `
		INSERT INTO fee_withdrawals (caller, currency, amount)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, query, w.Caller.Hex(), string(w.Currency), encodeAmount(w.Amount))
	if err != nil {
		return fmt.Errorf("postgres: record fee withdrawal: %w", err)
	}
	return nil
}

// ListWithdrawals returns the withdrawal history, newest first.
func (s *FeeStore) ListWithdrawals(ctx context.Context, opts domain.ListOpts) ([]domain.FeeWithdrawal, error) {
	query := `SELECT id, caller, currency, amount::text, created_at
		FROM fee_withdrawals ORDER BY created_at DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fee withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []domain.FeeWithdrawal
	for rows.Next() {
		var (
			w        domain.FeeWithdrawal
			caller   string
			currency string
			amount   string
		)
		if err := rows.Scan(&w.ID, &caller, &currency, &amount, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan fee withdrawal: %w", err)
		}
		w.Caller = common.HexToAddress(caller)
		w.Currency = domain.Currency(currency)
		if w.Amount, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fee withdrawals rows: %w", err)
	}
	return withdrawals, nil
}
