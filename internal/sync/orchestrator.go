package sync

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockcursor/zsync/internal/clock"
	"github.com/blockcursor/zsync/internal/decode"
	"github.com/blockcursor/zsync/internal/rpcnode"
	"github.com/blockcursor/zsync/pkg/admission"
	"go.uber.org/zap"
)

// Metrics records orchestrator-level outcomes.
type Metrics interface {
	ObserveSync(err error, started time.Time)
	ObserveChunk(err error, heightCount int, started time.Time)
}

// Orchestrator is the Sync Orchestrator. It computes the work to do,
// drives the admission-controlled worker pool, chains resume-from-
// checkpoint work before new work, and drives the outer periodic loop.
type Orchestrator struct {
	logger *zap.Logger

	chunkSize        uint64
	maxConcurrent    int
	syncInterval     time.Duration
	tipRetryInterval time.Duration

	node        NodeClient
	downloader  *Downloader
	lookup      decode.OutputLookup
	persister   Persister
	checkpoints CheckpointStore
	cursor      Cursor
	metrics     Metrics
	control     *Control

	sleep func(context.Context, time.Duration) error

	// syncMu is cs_sync: held across one Sync() invocation by the outer
	// loop so overlapping syncs from the loop itself cannot occur.
	syncMu sync.Mutex
	// syncing is sync_in_progress: guards against concurrent ad-hoc Sync()
	// invocations independent of the outer loop's own serialization.
	syncing atomic.Bool
}

// Config configures an Orchestrator. MaxConcurrent <= 0 derives
// runtime.NumCPU(), matching MAX_CONCURRENT_THREADS = hardware_concurrency;
// a positive value overrides that derivation.
type Config struct {
	ChunkSize        uint64
	MaxConcurrent    int
	SyncInterval     time.Duration
	TipRetryInterval time.Duration
}

// New constructs an Orchestrator.
func New(
	cfg Config,
	node NodeClient,
	lookup decode.OutputLookup,
	persister Persister,
	checkpoints CheckpointStore,
	cursor Cursor,
	missed MissedHeightRecorder,
	metrics Metrics,
	control *Control,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxConcurrent <= 0 {
		// MAX_CONCURRENT_THREADS = hardware_concurrency.
		cfg.MaxConcurrent = runtime.NumCPU()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.TipRetryInterval <= 0 {
		cfg.TipRetryInterval = DefaultTipRetryInterval
	}

	logger = logger.Named("orchestrator")

	return &Orchestrator{
		logger:           logger,
		chunkSize:        cfg.ChunkSize,
		maxConcurrent:    cfg.MaxConcurrent,
		syncInterval:     cfg.SyncInterval,
		tipRetryInterval: cfg.TipRetryInterval,
		node:             node,
		downloader:       NewDownloader(node, missed, logger),
		lookup:           lookup,
		persister:        persister,
		checkpoints:      checkpoints,
		cursor:           cursor,
		metrics:          metrics,
		control:          control,
		sleep:            clock.SleepWithContext,
	}
}

// Sync is the entry point. Performed under a single sync_in_progress
// guard; concurrent invocations return immediately.
func (o *Orchestrator) Sync(ctx context.Context) (err error) {
	if !o.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer o.syncing.Store(false)

	started := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.ObserveSync(err, started)
		}
	}()

	if err := o.resumeUnfinished(ctx); err != nil {
		return fmt.Errorf("resume unfinished checkpoints: %w", err)
	}

	latestSynced, err := o.cursor.LatestSynced(ctx)
	if err != nil {
		return fmt.Errorf("read latest synced height: %w", err)
	}
	tip, err := o.tip(ctx)
	if err != nil {
		return err
	}

	if tip < latestSynced {
		o.logger.Warn("chain tip below latest synced height, nothing to do",
			zap.Uint64("latest_synced", latestSynced), zap.Uint64("chain_tip", tip))
		return nil
	}
	delta := tip - latestSynced
	if delta == 0 {
		return nil
	}

	if delta >= o.chunkSize {
		start := latestSynced + 1
		if latestSynced == 0 {
			start = 0
		}
		if err := o.RangeSync(ctx, true, start, tip); err != nil {
			return fmt.Errorf("range sync [%d,%d]: %w", start, tip, err)
		}
		return nil
	}

	heights := make([]uint64, 0, delta)
	for h := latestSynced + 1; h <= tip; h++ {
		heights = append(heights, h)
	}
	if err := o.ListSync(ctx, heights); err != nil {
		return fmt.Errorf("list sync %v: %w", heights, err)
	}
	return nil
}

func (o *Orchestrator) resumeUnfinished(ctx context.Context) error {
	unfinished, err := o.checkpoints.ListUnfinishedCheckpoints(ctx)
	if err != nil {
		return err
	}
	for _, cp := range unfinished {
		o.logger.Info("resuming unfinished checkpoint",
			zap.Uint64("chunk_start", cp.ChunkStart), zap.Uint64("chunk_end", cp.ChunkEnd),
			zap.Int64("last_committed", cp.LastCommitted))
		if err := o.RangeSync(ctx, true, cp.ChunkStart, cp.ChunkEnd); err != nil {
			return err
		}
	}
	return nil
}

// RangeSync produces and consumes fixed-size chunks of width chunkSize
// over [start, end], admission-controlling the number of in-flight
// persistence workers.
func (o *Orchestrator) RangeSync(ctx context.Context, trackCheckpoints bool, start, end uint64) error {
	if end < start {
		return nil
	}

	pool := admission.New(o.maxConcurrent)

	cs := start
	for cs <= end {
		ce := min64(end, cs+o.chunkSize-1)
		resumeFrom := cs

		if trackCheckpoints {
			existing, err := o.checkpoints.GetCheckpoint(ctx, cs)
			if err != nil {
				return err
			}
			if existing != nil {
				ce = existing.ChunkEnd
				resumeFrom = existing.ResumeFrom()
			} else if err := o.checkpoints.CreateCheckpointIfAbsent(ctx, cs, ce); err != nil {
				return err
			}
		}

		raws := o.downloader.DownloadRange(ctx, cs, ce)
		plan := ChunkPlan{
			TrackCheckpoints: trackCheckpoints,
			ChunkStart:       cs,
			ChunkEnd:         ce,
			ResumeFrom:       resumeFrom,
		}

		if err := pool.Go(ctx, func(ctx context.Context) error {
			return o.runChunkWorker(ctx, plan, raws)
		}); err != nil {
			return err
		}

		cs = ce + 1
	}

	// Every worker admitted above is joined here. Because admission and
	// join share the same pool, no worker can outlive this call, so the
	// "workers still in flight after join" fatal case the source's
	// probe-then-sleep loop could hit is structurally unreachable.
	return pool.Wait()
}

// ListSync downloads an explicit list of heights, spawns a single
// persistence worker with checkpoint tracking disabled, and joins it
// before returning. No checkpoint is created.
func (o *Orchestrator) ListSync(ctx context.Context, heights []uint64) error {
	if len(heights) == 0 {
		return nil
	}

	raws := o.downloader.Download(ctx, heights)
	plan := ChunkPlan{
		TrackCheckpoints: false,
		ChunkStart:       heights[0],
		ChunkEnd:         heights[len(heights)-1],
		ResumeFrom:       heights[0],
	}

	pool := admission.New(1)
	if err := pool.Go(ctx, func(ctx context.Context) error {
		return o.runChunkWorker(ctx, plan, raws)
	}); err != nil {
		return err
	}
	return pool.Wait()
}

func (o *Orchestrator) runChunkWorker(ctx context.Context, plan ChunkPlan, raws []*rpcnode.RawBlock) (err error) {
	started := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.ObserveChunk(err, len(raws), started)
		}
	}()

	chunks := make([]*decode.Chunk, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		c, decErr := decode.Block(ctx, raw, o.lookup)
		if decErr != nil {
			return decErr
		}
		chunks[i] = c
	}

	return o.persister.PersistChunk(ctx, plan, chunks)
}

// tip reads the chain tip, spin-retrying while the node reports it is
// still loading the block index, and returning any other error
// (FatalRpcError) unchanged so the caller can abort the process.
func (o *Orchestrator) tip(ctx context.Context) (uint64, error) {
	for {
		count, err := o.node.BlockCount()
		if err == nil {
			return uint64(count), nil
		}

		var unready *rpcnode.TipUnreadyError
		if errors.As(err, &unready) {
			o.logger.Warn("node tip not ready, retrying", zap.Error(err))
			if sleepErr := o.sleep(ctx, o.tipRetryInterval); sleepErr != nil {
				return 0, sleepErr
			}
			continue
		}

		return 0, err
	}
}

// shouldSync returns false if a sync is already in progress; otherwise it
// refreshes both cursors and returns true iff latest_synced < chain_tip.
func (o *Orchestrator) shouldSync(ctx context.Context) (bool, error) {
	if o.syncing.Load() {
		return false, nil
	}
	latestSynced, err := o.cursor.LatestSynced(ctx)
	if err != nil {
		return false, err
	}
	tip, err := o.tip(ctx)
	if err != nil {
		return false, err
	}
	return latestSynced < tip, nil
}

// RunLoop is the outer periodic loop: while run_syncing is set, it takes
// the sync mutex, calls shouldSync, invokes Sync if needed, then sleeps
// syncInterval.
func (o *Orchestrator) RunLoop(ctx context.Context) error {
	for o.control.SyncingEnabled() {
		if err := o.runLoopIteration(ctx); err != nil {
			var fatal *rpcnode.FatalRpcError
			if errors.As(err, &fatal) {
				return err
			}
			o.logger.Error("sync iteration failed, will retry next interval", zap.Error(err))
		}

		if err := o.sleep(ctx, o.syncInterval); err != nil {
			return nil
		}
	}
	return nil
}

func (o *Orchestrator) runLoopIteration(ctx context.Context) error {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	should, err := o.shouldSync(ctx)
	if err != nil {
		return err
	}
	if !should {
		return nil
	}
	return o.Sync(ctx)
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
