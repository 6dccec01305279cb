package postgres

import (
	"context"

	"github.com/go-pg/pg/v10"
)

// LatestSynced returns max(height) over the blocks table, or 0 if empty.
func (s *Store) LatestSynced(ctx context.Context) (uint64, error) {
	var height uint64
	_, err := s.db.QueryOneContext(ctx, pg.Scan(&height), `SELECT COALESCE(MAX(height), 0) FROM blocks`)
	if err != nil {
		return 0, err
	}
	return height, nil
}
