package sync

import (
	"context"

	"github.com/blockcursor/zsync/internal/rpcnode"
	"go.uber.org/zap"
)

// Downloader is the Chunk Downloader: it calls the node for a verbose
// block at a height, tolerating per-height faults by recording a missed
// height and returning a nil slot rather than aborting the batch.
type Downloader struct {
	client NodeClient
	missed MissedHeightRecorder
	logger *zap.Logger
}

// NewDownloader constructs a Downloader.
func NewDownloader(client NodeClient, missed MissedHeightRecorder, logger *zap.Logger) *Downloader {
	return &Downloader{client: client, missed: missed, logger: logger.Named("downloader")}
}

// Download fetches an arbitrary list of heights, preserving input order.
// The returned slice has the same length as heights; a failed height
// yields a nil slot.
func (d *Downloader) Download(ctx context.Context, heights []uint64) []*rpcnode.RawBlock {
	out := make([]*rpcnode.RawBlock, len(heights))
	for i, h := range heights {
		out[i] = d.downloadOne(ctx, h)
	}
	return out
}

// DownloadRange fetches every height in [start, end] inclusive, preserving
// ascending order.
func (d *Downloader) DownloadRange(ctx context.Context, start, end uint64) []*rpcnode.RawBlock {
	if end < start {
		return nil
	}
	out := make([]*rpcnode.RawBlock, 0, end-start+1)
	for h := start; h <= end; h++ {
		out = append(out, d.downloadOne(ctx, h))
	}
	return out
}

func (d *Downloader) downloadOne(ctx context.Context, height uint64) *rpcnode.RawBlock {
	block, err := d.client.Block(height)
	if err != nil {
		d.logger.Warn("height download failed, marking missed", zap.Uint64("height", height), zap.Error(err))
		if recErr := d.missed.AddMissedHeight(ctx, height); recErr != nil {
			d.logger.Error("failed to record missed height", zap.Uint64("height", height), zap.Error(recErr))
		}
		return nil
	}
	if block == nil {
		d.logger.Warn("node returned null block, marking missed", zap.Uint64("height", height))
		if recErr := d.missed.AddMissedHeight(ctx, height); recErr != nil {
			d.logger.Error("failed to record missed height", zap.Uint64("height", height), zap.Error(recErr))
		}
		return nil
	}
	return block
}
