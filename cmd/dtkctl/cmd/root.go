package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/transfermesh/dtk/pkg/utils"
)

var (
	verbose    bool
	configPath string

	logger utils.Logger
)

// rootCmd is the base command for the transfer engine's operator CLI.
var rootCmd = &cobra.Command{
	Use:   "dtkctl",
	Short: "Build and drive point-location field transfers between meshes",
	Long: `dtkctl is a command-line operator tool for the transfer engine.

It builds a TransferOperator from a pair of mesh description files, applies
it to move field data from the source mesh onto the target mesh, and
reports any target points the rendezvous round trip could not locate.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute runs the root command, exiting with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a dtk config file (defaults applied when absent)")

	binName := BinName()
	rootCmd.Example = `  # Build a transfer operator and report missed target points
  ` + binName + ` build --source source.json --target target.json

  # Build a plan, apply it, and print the interpolated values
  ` + binName + ` apply --source source.json --target target.json --source-field temperature`
}

// GetLogger returns the logger configured by PersistentPreRunE.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
