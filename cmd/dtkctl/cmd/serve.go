package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/transfermesh/dtk/internal/substrate/grpcsubstrate"
)

var serveListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start this rank's gRPC substrate listener and block until stopped",
	Long: `serve boots the substrate.Group gRPC server for one rank of a
SubstrateConfig, so other ranks' dtkctl/dtkrankd processes can dial it
while exercising build/apply against a real network substrate instead of
the in-process LocalCluster. It runs no transfer itself; pair it with
dtkrankd for the coupling demo.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", ":7070", "Address this rank's substrate server listens on")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	peers := cfg.Substrate.Peers
	if len(peers) == 0 {
		peers = []string{serveListenAddr}
	}

	g, err := grpcsubstrate.Dial(cfg.Substrate.Rank, serveListenAddr, peers, log)
	if err != nil {
		return err
	}
	defer g.Close()

	log.Info("substrate listening on %s (rank %d of %d)", serveListenAddr, g.Rank(), g.Size())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down substrate listener")
	return nil
}
