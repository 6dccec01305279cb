package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
)

// Lookup implements decode.OutputLookup: an indexed point query against
// the transparent_outputs table, safe to call from any worker
// concurrently. Not-found is a normal result, not an error.
func (s *Store) Lookup(ctx context.Context, txID string, outputIndex uint32) (value float64, recipients []string, found bool, err error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.Observe("lookup_output", err, started)
		}
	}()

	row := &transparentOutputRow{TxID: txID, OutputIndex: outputIndex}
	err = s.db.ModelContext(ctx, row).WherePK().Select()
	if err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}
	m := row.toModel()
	return m.Value, m.Recipients, true, nil
}
