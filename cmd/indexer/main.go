package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/btcsuite/btcd/rpcclient"

	"github.com/blockcursor/zsync/internal/config"
	"github.com/blockcursor/zsync/internal/metrics"
	"github.com/blockcursor/zsync/internal/rpcnode"
	"github.com/blockcursor/zsync/internal/store/postgres"
	"github.com/blockcursor/zsync/internal/sync"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.ParseEnv()
	if err != nil {
		logger.Fatal("failed to parse configuration", zap.Error(err))
	}
	if cfg == nil {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		var fatal *rpcnode.FatalRpcError
		if errors.As(err, &fatal) {
			logger.Fatal("indexer aborted on a fatal node error", zap.Error(err))
		}
		logger.Fatal("indexer exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()

	rpcMetrics := metrics.NewRPCClient()
	node := rpcnode.New(rpcClient, rpcMetrics, cfg.RPCRate)

	storeMetrics := metrics.NewStore()
	store := postgres.New(postgres.Config{
		Name:     cfg.DBName,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		PoolSize: cfg.DBPoolSize,
	}, storeMetrics, logger)
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("failed to close store", zap.Error(closeErr))
		}
	}()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := store.InitAndSetup(ctx); err != nil {
		return fmt.Errorf("init database schema: %w", err)
	}

	control := sync.NewControl()

	orchestrator := sync.New(
		sync.Config{
			ChunkSize:        cfg.ChunkSize,
			MaxConcurrent:    cfg.MaxConcurrent,
			SyncInterval:     cfg.SyncInterval,
			TipRetryInterval: cfg.TipRetryInterval,
		},
		node,
		store,
		store,
		store,
		store,
		store,
		metrics.NewOrchestrator(),
		control,
		logger,
	)

	monitor := sync.NewMonitor(node, control, logger)

	metricsServer := startMetricsServer(cfg.MetricsAddr, logger)
	defer func() {
		_ = metricsServer.Shutdown(context.Background())
	}()

	go monitor.RunPeerInfoLoop(ctx)
	go monitor.RunChainInfoLoop(ctx)

	return orchestrator.RunLoop(ctx)
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("rpc url scheme %q not supported", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   parsed.Scheme == "http",
	}
	return rpcclient.New(connCfg, nil)
}

func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	return srv
}
