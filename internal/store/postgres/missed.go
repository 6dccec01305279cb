package postgres

import (
	"context"
	"time"

	"github.com/blockcursor/zsync/internal/model"
)

// AddMissedHeight records a height the downloader could not retrieve.
func (s *Store) AddMissedHeight(ctx context.Context, height uint64) error {
	row := &missedHeightRow{Height: height, RecordedAt: time.Now().UTC()}
	_, err := s.db.ModelContext(ctx, row).OnConflict("DO NOTHING").Insert()
	return err
}

// ListMissedHeights returns every recorded missed height.
func (s *Store) ListMissedHeights(ctx context.Context) ([]model.MissedHeight, error) {
	var rows []missedHeightRow
	if err := s.db.ModelContext(ctx, &rows).Order("height ASC").Select(); err != nil {
		return nil, err
	}
	out := make([]model.MissedHeight, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.MissedHeight{Height: r.Height, RecordedAt: r.RecordedAt})
	}
	return out, nil
}
