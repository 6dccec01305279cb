package sync

import (
	"context"
	"time"

	"github.com/blockcursor/zsync/internal/clock"
	"github.com/btcsuite/btcd/btcjson"
	"go.uber.org/zap"
)

// MonitorNodeClient is the subset of the node RPC transport the two
// background monitoring loops depend on.
type MonitorNodeClient interface {
	PeerInfo() ([]btcjson.GetPeerInfoResult, error)
	ChainInfo() (*btcjson.GetBlockChainInfoResult, error)
}

// Monitor runs the two ambient background loops: a peer-list refresh every
// 24h and a chain-info refresh every 30m, each independently gated by
// Control. Neither feeds the sync path; they exist to keep the node's
// connectivity and chain-tip metadata visible.
type Monitor struct {
	node    MonitorNodeClient
	control *Control
	logger  *zap.Logger

	peerInterval      time.Duration
	chainInfoInterval time.Duration

	sleep func(context.Context, time.Duration) error
}

// NewMonitor constructs a Monitor with the default refresh intervals.
func NewMonitor(node MonitorNodeClient, control *Control, logger *zap.Logger) *Monitor {
	return &Monitor{
		node:              node,
		control:           control,
		logger:            logger.Named("monitor"),
		peerInterval:      PeerMonitorInterval,
		chainInfoInterval: ChainInfoMonitorInterval,
		sleep:             clock.SleepWithContext,
	}
}

// RunPeerInfoLoop polls the node's peer list on peerInterval while peer
// monitoring is enabled.
func (m *Monitor) RunPeerInfoLoop(ctx context.Context) {
	for m.control.PeerMonitoringEnabled() {
		peers, err := m.node.PeerInfo()
		if err != nil {
			m.logger.Warn("peer info refresh failed", zap.Error(err))
		} else {
			m.logger.Info("peer info refreshed", zap.Int("peer_count", len(peers)))
		}

		if sleepErr := m.sleep(ctx, m.peerInterval); sleepErr != nil {
			return
		}
	}
}

// RunChainInfoLoop polls the node's chain info on chainInfoInterval while
// chain-info monitoring is enabled.
func (m *Monitor) RunChainInfoLoop(ctx context.Context) {
	for m.control.ChainInfoMonitoringEnabled() {
		info, err := m.node.ChainInfo()
		if err != nil {
			m.logger.Warn("chain info refresh failed", zap.Error(err))
		} else {
			m.logger.Info("chain info refreshed",
				zap.String("chain", info.Chain),
				zap.Int32("blocks", info.Blocks),
				zap.Float64("difficulty", info.Difficulty))
		}

		if sleepErr := m.sleep(ctx, m.chainInfoInterval); sleepErr != nil {
			return
		}
	}
}
