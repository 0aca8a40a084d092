package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mastr-geocoding",
	Short: "Geocode MaStR power generation unit addresses",
	Long:  "Extracts unique zip-code/municipality strings from the MaStR registry dump, resolves them via Nominatim with caching and fallback, and exports a geospatial dataset.",
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
