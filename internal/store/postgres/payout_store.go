package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddslab/predictd/internal/domain"
)

// PayoutStore implements domain.PayoutStore using PostgreSQL.
type PayoutStore struct {
	pool *pgxpool.Pool
}

// NewPayoutStore creates a new PayoutStore backed by the given connection pool.
func NewPayoutStore(pool *pgxpool.Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

var _ domain.PayoutStore = (*PayoutStore)(nil)

// InsertBatch writes the payouts of one settlement in a single batch.
func (s *PayoutStore) InsertBatch(ctx context.Context, payouts []domain.Payout) error {
	if len(payouts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO payouts (prediction_id, market_id, bettor, currency, amount)
		VALUES ($1, $2, $3, $4, $5)`

	for _, p := range payouts {
		batch.Queue(query,
			p.PredictionID, int64(p.MarketID), p.Bettor.Hex(),
			string(p.Currency), encodeAmount(p.Amount),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range payouts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert payout batch item %d: %w", i, err)
		}
	}
	return nil
}

const payoutCols = `prediction_id, market_id, bettor, currency, amount::text`

// ListByMarket returns the payouts computed for one market.
func (s *PayoutStore) ListByMarket(ctx context.Context, marketID uint64) ([]domain.Payout, error) {
	return s.queryPayouts(ctx,
		`SELECT `+payoutCols+` FROM payouts WHERE market_id = $1 ORDER BY id`,
		int64(marketID))
}

// ListByBettor returns every payout owed to one bettor across markets.
func (s *PayoutStore) ListByBettor(ctx context.Context, bettor common.Address) ([]domain.Payout, error) {
	return s.queryPayouts(ctx,
		`SELECT `+payoutCols+` FROM payouts WHERE bettor = $1 ORDER BY id`,
		bettor.Hex())
}

func (s *PayoutStore) queryPayouts(ctx context.Context, query string, args ...any) ([]domain.Payout, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		var (
			p        domain.Payout
			marketID int64
			bettor   string
			currency string
			amount   string
		)
		if err := rows.Scan(&p.PredictionID, &marketID, &bettor, &currency, &amount); err != nil {
			return nil, fmt.Errorf("postgres: scan payout: %w", err)
		}
		p.MarketID = uint64(marketID)
		p.Bettor = common.HexToAddress(bettor)
		p.Currency = domain.Currency(currency)
		if p.Amount, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payouts rows: %w", err)
	}
	return payouts, nil
}
