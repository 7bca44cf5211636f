package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/transfermesh/dtk/internal/coupler"
	"github.com/transfermesh/dtk/internal/substrate/grpcsubstrate"
	"github.com/transfermesh/dtk/pkg/config"
	"github.com/transfermesh/dtk/pkg/utils"
)

var (
	configPath = flag.String("c", "", "Path to configuration file")
	listenAddr = flag.String("l", "", "Address this rank's substrate server listens on (overrides config)")
	version    = flag.Bool("v", false, "Print version and exit")
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("dtkrankd version %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	logger := utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	logger.Info("starting dtkrankd...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	addr := *listenAddr
	if addr == "" && cfg.Substrate.Rank < len(cfg.Substrate.Peers) {
		addr = cfg.Substrate.Peers[cfg.Substrate.Rank]
	}
	if addr == "" {
		logger.Error("no listen address: pass -l or set substrate.peers[substrate.rank] in config")
		os.Exit(1)
	}

	logger.Info("rank %d of %d, listening on %s", cfg.Substrate.Rank, len(cfg.Substrate.Peers), addr)

	g, err := grpcsubstrate.Dial(cfg.Substrate.Rank, addr, cfg.Substrate.Peers, logger)
	if err != nil {
		logger.Error("failed to start substrate server: %v", err)
		os.Exit(1)
	}
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("waiting for peers before running the coupling demo...")
	if err := g.Barrier(ctx); err != nil {
		logger.Error("barrier before coupling run failed: %v", err)
		os.Exit(1)
	}

	result, err := coupler.Run(ctx, g, coupler.DefaultOptions())
	if err != nil {
		logger.Error("coupling run failed: %v", err)
		os.Exit(1)
	}
	logger.Info("coupling run finished: converged=%v iterations=%d residual=%g", result.Converged, result.Iterations, result.Residual)

	select {
	case sig := <-sigChan:
		logger.Info("received signal %v, shutting down", sig)
	case <-ctx.Done():
	}
}
