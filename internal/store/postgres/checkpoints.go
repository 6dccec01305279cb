package postgres

import (
	"context"
	"errors"

	"github.com/blockcursor/zsync/internal/model"
	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
)

// GetCheckpoint returns the checkpoint for chunkStart, if any.
func (s *Store) GetCheckpoint(ctx context.Context, chunkStart uint64) (*model.Checkpoint, error) {
	return getCheckpoint(ctx, s.db, chunkStart)
}

// CreateCheckpointIfAbsent inserts a fresh (chunkStart, chunkEnd,
// chunkStart-1) checkpoint unless one already exists for chunkStart.
func (s *Store) CreateCheckpointIfAbsent(ctx context.Context, chunkStart, chunkEnd uint64) error {
	return createCheckpointIfAbsent(ctx, s.db, chunkStart, chunkEnd)
}

// FinishCheckpoint deletes the checkpoint row for chunkStart, marking the
// chunk finished.
func (s *Store) FinishCheckpoint(ctx context.Context, chunkStart uint64) error {
	return finishCheckpoint(ctx, s.db, chunkStart)
}

// ListUnfinishedCheckpoints returns every unfinished checkpoint, newest
// first (highest chunk_start first), so the resume pass works on the most
// recent interruption first.
func (s *Store) ListUnfinishedCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	var rows []checkpointRow
	if err := s.db.ModelContext(ctx, &rows).Order("chunk_start DESC").Select(); err != nil {
		return nil, err
	}
	out := make([]model.Checkpoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// The unexported variants below take an orm.DB (satisfied by both *pg.DB
// and *pg.Tx) so the Chunk Persister can advance a checkpoint in the same
// transaction as the block it guards.

func getCheckpoint(ctx context.Context, db orm.DB, chunkStart uint64) (*model.Checkpoint, error) {
	row := &checkpointRow{ChunkStart: chunkStart}
	if err := db.ModelContext(ctx, row).WherePK().Select(); err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := row.toModel()
	return &m, nil
}

func createCheckpointIfAbsent(ctx context.Context, db orm.DB, chunkStart, chunkEnd uint64) error {
	row := newCheckpointRow(model.Checkpoint{
		ChunkStart:    chunkStart,
		ChunkEnd:      chunkEnd,
		LastCommitted: int64(chunkStart) - 1,
	})
	_, err := db.ModelContext(ctx, row).OnConflict("DO NOTHING").Insert()
	return err
}

func advanceCheckpoint(ctx context.Context, db orm.DB, chunkStart, lastCommitted uint64) error {
	row := &checkpointRow{ChunkStart: chunkStart}
	_, err := db.ModelContext(ctx, row).
		Set("last_committed = ?", lastCommitted).
		WherePK().
		Update()
	return err
}

func finishCheckpoint(ctx context.Context, db orm.DB, chunkStart uint64) error {
	_, err := db.ModelContext(ctx, &checkpointRow{ChunkStart: chunkStart}).WherePK().Delete()
	return err
}
