// Package sync implements the Sync Orchestrator, the Chunk Downloader, the
// Control Surface, and the two monitoring loops. It depends on the Block
// Decoder, the Output Lookup, the Checkpoint Store, and the Chunk
// Persister only through the interfaces declared here.
package sync

import (
	"context"

	"github.com/blockcursor/zsync/internal/decode"
	"github.com/blockcursor/zsync/internal/model"
	"github.com/blockcursor/zsync/internal/rpcnode"
)

// ChunkPlan carries the bookkeeping the Chunk Persister needs alongside
// the decoded blocks it is asked to write for one chunk.
type ChunkPlan struct {
	TrackCheckpoints bool
	ChunkStart       uint64
	ChunkEnd         uint64
	// ResumeFrom is the lowest height not already committed; blocks below
	// it are skipped rather than re-inserted.
	ResumeFrom uint64
}

type (
	// Persister writes a decoded chunk and advances or finishes its
	// checkpoint atomically, per block.
	Persister interface {
		PersistChunk(ctx context.Context, plan ChunkPlan, blocks []*decode.Chunk) error
	}

	// CheckpointStore is the durable ledger of chunk progress.
	CheckpointStore interface {
		GetCheckpoint(ctx context.Context, chunkStart uint64) (*model.Checkpoint, error)
		CreateCheckpointIfAbsent(ctx context.Context, chunkStart, chunkEnd uint64) error
		FinishCheckpoint(ctx context.Context, chunkStart uint64) error
		ListUnfinishedCheckpoints(ctx context.Context) ([]model.Checkpoint, error)
	}

	// Cursor reports how far the store has been synced.
	Cursor interface {
		LatestSynced(ctx context.Context) (uint64, error)
	}

	// MissedHeightRecorder records heights the downloader could not
	// retrieve.
	MissedHeightRecorder interface {
		AddMissedHeight(ctx context.Context, height uint64) error
	}

	// NodeClient is the subset of the node RPC transport the orchestrator
	// depends on.
	NodeClient interface {
		BlockCount() (int64, error)
		Block(height uint64) (*rpcnode.RawBlock, error)
	}
)
