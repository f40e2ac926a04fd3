package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "atlas-cli",
	Short: "Starlink latency analysis over RIPE Atlas measurements",
	Long:  "Downloads traceroute measurements and probe connectivity history from RIPE Atlas, decomposes per-hop results into user/bent-pipe/ground latency segments, and produces connectivity statistics, reports, and charts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
