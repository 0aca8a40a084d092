package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/fetcher"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and extract the MaStR dump archive",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := fetcher.DownloadDump(ctx, nil, cfg.MaStR); err != nil {
			return err
		}

		zap.L().Info("download complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}
