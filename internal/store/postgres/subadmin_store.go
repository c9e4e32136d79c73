package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddslab/predictd/internal/domain"
)

// SubAdminStore implements domain.SubAdminStore using PostgreSQL.
type SubAdminStore struct {
	pool *pgxpool.Pool
}

// NewSubAdminStore creates a new SubAdminStore backed by the given connection
// pool.
func NewSubAdminStore(pool *pgxpool.Pool) *SubAdminStore {
	return &SubAdminStore{pool: pool}
}

var _ domain.SubAdminStore = (*SubAdminStore)(nil)

// Add inserts a sub-admin row; re-adding an existing address is a no-op.
func (s *SubAdminStore) Add(ctx context.Context, addr common.Address) error {
	const query = `
		INSERT INTO sub_admins (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, addr.Hex()); err != nil {
		return fmt.Errorf("postgres: add sub-admin %s: %w", addr.Hex(), err)
	}
	return nil
}

// Remove deletes a sub-admin row.
func (s *SubAdminStore) Remove(ctx context.Context, addr common.Address) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sub_admins WHERE address = $1`, addr.Hex())
	if err != nil {
		return fmt.Errorf("postgres: remove sub-admin %s: %w", addr.Hex(), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LoadAll returns the full sub-admin set, used for startup rehydration.
func (s *SubAdminStore) LoadAll(ctx context.Context) ([]common.Address, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM sub_admins ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load sub-admins: %w", err)
	}
	defer rows.Close()

	var addrs []common.Address
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("postgres: scan sub-admin: %w", err)
		}
		addrs = append(addrs, common.HexToAddress(addr))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load sub-admins rows: %w", err)
	}
	return addrs, nil
}
