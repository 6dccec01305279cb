package sync

import "sync/atomic"

// Control is the Control Surface: start/stop signals consumed by the
// outer sync loop and the two monitoring loops. All three are independent
// off-switches; none interrupts in-progress work, they only prevent the
// next iteration from starting.
type Control struct {
	syncing             atomic.Bool
	peerMonitoring      atomic.Bool
	chainInfoMonitoring atomic.Bool
}

// NewControl constructs a Control with every loop enabled.
func NewControl() *Control {
	c := &Control{}
	c.syncing.Store(true)
	c.peerMonitoring.Store(true)
	c.chainInfoMonitoring.Store(true)
	return c
}

// SyncingEnabled reports whether the outer sync loop should keep running.
func (c *Control) SyncingEnabled() bool { return c.syncing.Load() }

// PeerMonitoringEnabled reports whether the peer-info loop should keep
// running.
func (c *Control) PeerMonitoringEnabled() bool { return c.peerMonitoring.Load() }

// ChainInfoMonitoringEnabled reports whether the chain-info loop should
// keep running.
func (c *Control) ChainInfoMonitoringEnabled() bool { return c.chainInfoMonitoring.Load() }

// Stop flips every loop's flag off. The current iteration of each loop
// still runs to completion; they quiesce at their next interval boundary.
func (c *Control) Stop() {
	c.syncing.Store(false)
	c.peerMonitoring.Store(false)
	c.chainInfoMonitoring.Store(false)
}
