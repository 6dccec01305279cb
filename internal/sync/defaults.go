package sync

import "time"

const (
	// DefaultChunkSize is CHUNK_SIZE when the operator does not override
	// block_chunk_processing_size.
	DefaultChunkSize uint64 = 200

	// DefaultSyncInterval is SYNC_INTERVAL, the outer loop's sleep between
	// sync attempts.
	DefaultSyncInterval = 60 * time.Minute

	// DefaultTipRetryInterval paces the spin-retry against a node
	// reporting "Loading block index".
	DefaultTipRetryInterval = 5 * time.Second

	// PeerMonitorInterval is the peer-list refresh period.
	PeerMonitorInterval = 24 * time.Hour

	// ChainInfoMonitorInterval is the chain-info refresh period.
	ChainInfoMonitorInterval = 30 * time.Minute
)
