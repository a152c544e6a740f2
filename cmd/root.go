package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ad-scout",
	Short: "Find winning Facebook ads by keyword and country",
	Long:  "Scrapes the Facebook Ads Library through Apify, filters and classifies ads into winner/potential tiers, stores searches, exports them and generates copy clones.",
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
