// Package main implements the cca8 CLI: a thin operator console around the
// Agent Runtime tick loop, snapshot persistence, and a filesystem watch
// mode for replaying observation batches as they are dropped on disk.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cca8/internal/logging"
)

var (
	verbose    bool
	workspace  string
	snapshotIn string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cca8",
	Short: "cca8 - mountain-goat neonate Agent Runtime console",
	Long: `cca8 drives the Agent Runtime's tick loop from the command line:
single ticks, scripted runs, snapshot persistence, and a filesystem watch
mode for replaying dropped observation batches.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging init failed: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&snapshotIn, "snapshot", ".cca8/snapshot.json", "snapshot path to load/save")

	rootCmd.AddCommand(tickCmd, runCmd, snapshotCmd, watchCmd)
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
