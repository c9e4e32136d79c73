package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddslab/predictd/internal/domain"
)

// PredictionStore implements domain.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *pgxpool.Pool
}

// NewPredictionStore creates a new PredictionStore backed by the given
// connection pool.
func NewPredictionStore(pool *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

var _ domain.PredictionStore = (*PredictionStore)(nil)

// Insert appends a stake record. Rows are immutable once written.
func (s *PredictionStore) Insert(ctx context.Context, p domain.Prediction) error {
	const query = `
		INSERT INTO predictions (id, market_id, bettor, side, currency, amount, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, int64(p.MarketID), p.Bettor.Hex(),
		string(p.Side), string(p.Currency), encodeAmount(p.Amount), p.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert prediction %s: %w", p.ID, err)
	}
	return nil
}

const predictionCols = `id, market_id, bettor, side, currency, amount::text, placed_at`

// ListByMarket returns a market's stake records in placement order.
func (s *PredictionStore) ListByMarket(ctx context.Context, marketID uint64) ([]domain.Prediction, error) {
	return s.queryPredictions(ctx,
		`SELECT `+predictionCols+` FROM predictions WHERE market_id = $1 ORDER BY placed_at, id`,
		int64(marketID))
}

// LoadAll returns every stake record, used for startup rehydration.
func (s *PredictionStore) LoadAll(ctx context.Context) ([]domain.Prediction, error) {
	return s.queryPredictions(ctx,
		`SELECT `+predictionCols+` FROM predictions ORDER BY placed_at, id`)
}

func (s *PredictionStore) queryPredictions(ctx context.Context, query string, args ...any) ([]domain.Prediction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []domain.Prediction
	for rows.Next() {
		var (
			p        domain.Prediction
			marketID int64
			bettor   string
			side     string
			currency string
			amount   string
		)
		if err := rows.Scan(&p.ID, &marketID, &bettor, &side, &currency, &amount, &p.PlacedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan prediction: %w", err)
		}
		p.MarketID = uint64(marketID)
		p.Bettor = common.HexToAddress(bettor)
		p.Side = domain.Side(side)
		p.Currency = domain.Currency(currency)
		if p.Amount, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list predictions rows: %w", err)
	}
	return predictions, nil
}
