package model

import "time"

// Checkpoint is a durable record of a chunk's plan and progress. A
// checkpoint is finished when LastCommitted == ChunkEnd; unfinished
// checkpoints form the resume queue.
type Checkpoint struct {
	ChunkStart    uint64
	ChunkEnd      uint64
	// LastCommitted is ChunkStart-1 (so -1 for a chunk starting at height
	// 0) when no block in the chunk has committed yet.
	LastCommitted int64
}

// Finished reports whether every block in the chunk has been committed.
func (c Checkpoint) Finished() bool {
	return c.LastCommitted == int64(c.ChunkEnd)
}

// ResumeFrom is the height at which a resumed range sync should continue.
func (c Checkpoint) ResumeFrom() uint64 {
	return uint64(c.LastCommitted + 1)
}

// MissedHeight records a height the downloader could not retrieve.
type MissedHeight struct {
	Height     uint64
	RecordedAt time.Time
}
