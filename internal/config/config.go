// Package config declares the indexer's command-line and environment
// configuration surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config is the full set of options the indexer daemon accepts, both as
// flags and as environment variables.
type Config struct {
	DBName     string `long:"db-name" env:"ZSYNC_DB_NAME" description:"Postgres database name" required:"true"`
	DBUser     string `long:"db-user" env:"ZSYNC_DB_USER" description:"Postgres user" required:"true"`
	DBPassword string `long:"db-password" env:"ZSYNC_DB_PASSWORD" description:"Postgres password"`
	DBHost     string `long:"db-host" env:"ZSYNC_DB_HOST" description:"Postgres host" default:"127.0.0.1"`
	DBPort     string `long:"db-port" env:"ZSYNC_DB_PORT" description:"Postgres port" default:"5432"`
	DBPoolSize int    `long:"db-pool-size" env:"ZSYNC_DB_POOL_SIZE" description:"Postgres connection pool size; 0 derives 5x runtime.NumCPU(), the source's hardware_concurrency*5 sizing"`

	RPCURL      string `long:"rpc-url" env:"ZSYNC_RPC_URL" description:"chain node RPC URL" default:"http://127.0.0.1:8232"`
	RPCUser     string `long:"rpc-user" env:"ZSYNC_RPC_USER" description:"chain node RPC username"`
	RPCPassword string `long:"rpc-password" env:"ZSYNC_RPC_PASSWORD" description:"chain node RPC password"`
	RPCRate     int    `long:"rpc-rate" env:"ZSYNC_RPC_RATE" description:"max RPC requests per second" default:"50"`

	ChunkSize        uint64        `long:"block-chunk-processing-size" env:"ZSYNC_BLOCK_CHUNK_PROCESSING_SIZE" description:"heights processed per chunk and per checkpoint" default:"200"`
	MaxConcurrent    int           `long:"max-concurrent-chunks" env:"ZSYNC_MAX_CONCURRENT_CHUNKS" description:"max chunk persistence workers in flight; 0 derives runtime.NumCPU(), the source's hardware_concurrency sizing"`
	SyncInterval     time.Duration `long:"sync-interval" env:"ZSYNC_SYNC_INTERVAL" description:"sleep between sync attempts" default:"60m"`
	TipRetryInterval time.Duration `long:"tip-retry-interval" env:"ZSYNC_TIP_RETRY_INTERVAL" description:"retry pacing while the node reports it is still loading its block index" default:"5s"`

	MetricsAddr string `long:"metrics-addr" env:"ZSYNC_METRICS_ADDR" description:"listen address for the Prometheus /metrics endpoint" default:":9300"`
}

// Parse parses command-line flags and environment variables into a Config.
// It returns (nil, nil) when the caller asked for --help, signaling the
// process should exit 0 without further action.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	if _, err := flags.ParseArgs(cfg, args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}

// ParseEnv parses os.Args, a thin convenience wrapper around Parse.
func ParseEnv() (*Config, error) {
	return Parse(os.Args)
}
