package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/blockcursor/zsync/internal/decode"
	"github.com/blockcursor/zsync/internal/sync"
	"github.com/go-pg/pg/v10"
)

// PersistChunk writes one decoded block per slot of blocks, in ascending
// height order, skipping blocks at or below plan.ResumeFrom-1 and missing
// (nil) slots. Each block commits in its own transaction; when
// TrackCheckpoints is set, the checkpoint's last_committed is advanced (or
// the checkpoint is deleted, on the final block) in that same transaction.
func (s *Store) PersistChunk(ctx context.Context, plan sync.ChunkPlan, blocks []*decode.Chunk) (err error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.Observe("persist_chunk", err, started)
		}
	}()

	if plan.TrackCheckpoints {
		if err := createCheckpointIfAbsent(ctx, s.db, plan.ChunkStart, plan.ChunkEnd); err != nil {
			return fmt.Errorf("create checkpoint %d: %w", plan.ChunkStart, err)
		}
	}

	height := plan.ChunkStart
	for _, chunk := range blocks {
		if chunk == nil {
			height++
			continue
		}
		if height < plan.ResumeFrom {
			height++
			continue
		}

		isFinal := height == plan.ChunkEnd
		if err := s.persistBlock(ctx, plan, chunk, isFinal); err != nil {
			return fmt.Errorf("persist block at height %d: %w", height, err)
		}
		height++
	}

	return nil
}

func (s *Store) persistBlock(ctx context.Context, plan sync.ChunkPlan, chunk *decode.Chunk, isFinal bool) error {
	return s.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		if _, err := tx.ModelContext(ctx, newBlockRow(chunk.Block)).OnConflict("DO NOTHING").Insert(); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}

		for _, t := range chunk.Transactions {
			if _, err := tx.ModelContext(ctx, newTransactionRow(t)).OnConflict("DO NOTHING").Insert(); err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.TxID, err)
			}
		}

		for _, o := range chunk.Outputs {
			if _, err := tx.ModelContext(ctx, newTransparentOutputRow(o)).OnConflict("DO NOTHING").Insert(); err != nil {
				return fmt.Errorf("insert output (%s,%d): %w", o.TxID, o.OutputIndex, err)
			}
		}

		for _, in := range chunk.Inputs {
			if _, err := tx.ModelContext(ctx, newTransparentInputRow(in)).OnConflict("DO NOTHING").Insert(); err != nil {
				return fmt.Errorf("insert input (%s,%d): %w", in.TxID, in.InputOrdinal, err)
			}
		}

		if plan.TrackCheckpoints {
			if isFinal {
				if err := finishCheckpoint(ctx, tx, plan.ChunkStart); err != nil {
					return fmt.Errorf("finish checkpoint %d: %w", plan.ChunkStart, err)
				}
			} else if err := advanceCheckpoint(ctx, tx, plan.ChunkStart, chunk.Block.Height); err != nil {
				return fmt.Errorf("advance checkpoint %d: %w", plan.ChunkStart, err)
			}
		}

		return nil
	})
}
