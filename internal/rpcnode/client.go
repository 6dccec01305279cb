package rpcnode

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/rpcclient"
	"go.uber.org/ratelimit"
)

const blockVerbosity = 2

// Metrics records per-operation RPC outcomes.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

// Client wraps a btcd rpcclient.Client behind a single mutex so that one
// HTTP client instance is used exclusively across the engine, and paces
// calls with a go.uber.org/ratelimit limiter.
type Client struct {
	mu      sync.Mutex
	raw     *rpcclient.Client
	limiter ratelimit.Limiter
	metrics Metrics
}

// New constructs a Client. rps bounds the rate of outbound RPC calls.
func New(raw *rpcclient.Client, metrics Metrics, rps int) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		raw:     raw,
		limiter: ratelimit.New(rps),
		metrics: metrics,
	}
}

func (c *Client) call(operation string, fn func() error) (err error) {
	started := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.Observe(operation, err, started)
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter.Take()

	return fn()
}

// BlockCount returns the chain tip as reported by getblockcount.
func (c *Client) BlockCount() (int64, error) {
	var count int64
	err := c.call("get_block_count", func() error {
		n, err := c.raw.GetBlockCount()
		if err != nil {
			return classifyTipError(err)
		}
		count = n
		return nil
	})
	return count, err
}

// Block returns the verbose block document for height, nil when the node
// returns a null document, or a *TransientRpcError if the call fails.
func (c *Client) Block(height uint64) (*RawBlock, error) {
	var block *RawBlock
	err := c.call("get_block", func() error {
		heightArg, err := json.Marshal(strconv.FormatUint(height, 10))
		if err != nil {
			return &TransientRpcError{Op: "getblock", Err: err}
		}
		verbosityArg, err := json.Marshal(blockVerbosity)
		if err != nil {
			return &TransientRpcError{Op: "getblock", Err: err}
		}

		blockRaw, err := c.raw.RawRequest("getblock", []json.RawMessage{heightArg, verbosityArg})
		if err != nil {
			return &TransientRpcError{Op: "getblock", Err: err}
		}
		if err := json.Unmarshal(blockRaw, &block); err != nil {
			return &TransientRpcError{Op: "getblock", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// PeerInfo returns the node's current peer list.
func (c *Client) PeerInfo() ([]btcjson.GetPeerInfoResult, error) {
	var peers []btcjson.GetPeerInfoResult
	err := c.call("get_peer_info", func() error {
		p, err := c.raw.GetPeerInfo()
		if err != nil {
			return &TransientRpcError{Op: "getpeerinfo", Err: err}
		}
		peers = p
		return nil
	})
	return peers, err
}

// ChainInfo returns the node's current chain info summary.
func (c *Client) ChainInfo() (*btcjson.GetBlockChainInfoResult, error) {
	var info *btcjson.GetBlockChainInfoResult
	err := c.call("get_blockchain_info", func() error {
		i, err := c.raw.GetBlockChainInfo()
		if err != nil {
			return &TransientRpcError{Op: "getblockchaininfo", Err: err}
		}
		info = i
		return nil
	})
	return info, err
}

func classifyTipError(err error) error {
	if strings.Contains(err.Error(), loadingBlockIndexSubstring) {
		return &TipUnreadyError{Err: err}
	}
	return &FatalRpcError{Err: err}
}
