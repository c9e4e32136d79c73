package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddslab/predictd/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

// Insert writes a newly created market row.
func (s *MarketStore) Insert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, question, start_time, close_time,
			ton_yes, ton_no, usdt_yes, usdt_no,
			outcome, resolved, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, NOW()
		)`

	ton := m.Pools[domain.CurrencyTON]
	usdt := m.Pools[domain.CurrencyUSDT]
	_, err := s.pool.Exec(ctx, query,
		int64(m.ID), m.Question, m.StartTime, m.CloseTime,
		encodeAmount(ton.Yes), encodeAmount(ton.No),
		encodeAmount(usdt.Yes), encodeAmount(usdt.No),
		int16(m.Outcome), m.Resolved, m.CreatedBy.Hex(), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert market %d: %w", m.ID, err)
	}
	return nil
}

// UpdatePools overwrites the pool balances of a market after a bet commits.
func (s *MarketStore) UpdatePools(ctx context.Context, id uint64, pools map[domain.Currency]domain.Pool) error {
	const query = `
		UPDATE markets SET
			ton_yes    = $2,
			ton_no     = $3,
			usdt_yes   = $4,
			usdt_no    = $5,
			updated_at = NOW()
		WHERE id = $1`

	ton := pools[domain.CurrencyTON]
	usdt := pools[domain.CurrencyUSDT]
	tag, err := s.pool.Exec(ctx, query,
		int64(id),
		encodeAmount(ton.Yes), encodeAmount(ton.No),
		encodeAmount(usdt.Yes), encodeAmount(usdt.No),
	)
	if err != nil {
		return fmt.Errorf("postgres: update pools for market %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// MarkResolved stores the terminal outcome of a market.
func (s *MarketStore) MarkResolved(ctx context.Context, id uint64, outcome domain.Outcome, resolvedAt time.Time) error {
	const query = `
		UPDATE markets SET
			outcome     = $2,
			resolved    = TRUE,
			resolved_at = $3,
			updated_at  = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, int64(id), int16(outcome), resolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: mark market %d resolved: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

const marketCols = `id, question, start_time, close_time,
	ton_yes::text, ton_no::text, usdt_yes::text, usdt_no::text,
	outcome, resolved, created_by, created_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m        domain.Market
		id       int64
		tonYes   string
		tonNo    string
		usdtYes  string
		usdtNo   string
		outcome  int16
		creator  string
	)
	err := row.Scan(
		&id, &m.Question, &m.StartTime, &m.CloseTime,
		&tonYes, &tonNo, &usdtYes, &usdtNo,
		&outcome, &m.Resolved, &creator, &m.CreatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}

	m.ID = uint64(id)
	m.Outcome = domain.Outcome(outcome)
	m.CreatedBy = common.HexToAddress(creator)
	m.Pools = make(map[domain.Currency]domain.Pool, 2)
	for _, cell := range []struct {
		cur      domain.Currency
		yes, no  string
	}{
		{domain.CurrencyTON, tonYes, tonNo},
		{domain.CurrencyUSDT, usdtYes, usdtNo},
	} {
		yes, err := decodeAmount(cell.yes)
		if err != nil {
			return domain.Market{}, err
		}
		no, err := decodeAmount(cell.no)
		if err != nil {
			return domain.Market{}, err
		}
		m.Pools[cell.cur] = domain.Pool{Yes: yes, No: no}
	}
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id uint64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, int64(id))
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// List returns markets in creation order with pagination.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY id`
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

	return s.queryMarkets(ctx, query, args...)
}

// LoadAll returns every market, used for startup rehydration.
func (s *MarketStore) LoadAll(ctx context.Context) ([]domain.Market, error) {
	return s.queryMarkets(ctx, `SELECT `+marketCols+` FROM markets ORDER BY id`)
}

func (s *MarketStore) queryMarkets(ctx context.Context, query string, args ...any) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}
