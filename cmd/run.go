package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/cache"
	"github.com/egon-data/mastr-geocoding/internal/export"
	"github.com/egon-data/mastr-geocoding/internal/fetcher"
	"github.com/egon-data/mastr-geocoding/internal/mastr"
	"github.com/egon-data/mastr-geocoding/internal/pipeline"
	"github.com/egon-data/mastr-geocoding/internal/report"
	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full geocoding pipeline",
	Long: `Download the MaStR dump (unless --skip-download), extract unique
zip-code/municipality strings, geocode everything not already cached,
and export the merged result as a geospatial file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		for _, section := range []string{"geocoding", "cache", "export"} {
			if err := cfg.Validate(section); err != nil {
				return err
			}
		}

		skipDownload, err := cmd.Flags().GetBool("skip-download")
		if err != nil {
			return eris.Wrap(err, "run: read flag")
		}

		if !skipDownload {
			if err := fetcher.DownloadDump(ctx, nil, cfg.MaStR); err != nil {
				return err
			}
		}

		addrs, err := mastr.ZipAndMunicipality(ctx, cfg.MaStR)
		if err != nil {
			return err
		}

		result, err := geocodeAddresses(ctx, addrs)
		if err != nil {
			return err
		}

		if err := export.Write(result.Table, cfg.Export); err != nil {
			return err
		}

		zap.L().Info("pipeline complete",
			zap.String("run_id", result.Report.RunID),
			zap.Int("exported", len(result.Table)),
			zap.Int("failures", len(result.Report.Failures)),
		)
		return nil
	},
}

// geocodeAddresses wires the cache, client and reporter into a Geocoder
// and runs it over the address list.
func geocodeAddresses(ctx context.Context, addrs []string) (*pipeline.RunResult, error) {
	store, err := cache.Open(ctx, cfg.Cache.Driver, cfg.Cache.Path, cfg.Cache.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer store.Close() //nolint:errcheck

	client := geocode.NewClient(cfg.Geocoding.UserAgent,
		geocode.WithEndpoint(cfg.Geocoding.Endpoint),
		geocode.WithMinDelay(time.Duration(cfg.Geocoding.MinDelaySeconds)*time.Second),
		geocode.WithRetry(cfg.Geocoding.MaxRetries, time.Duration(cfg.Geocoding.ErrorWaitSecs)*time.Second),
	)

	geocoder := pipeline.New(client, store,
		pipeline.WithProgress(isatty.IsTerminal(os.Stderr.Fd())),
		pipeline.WithFailureReporter(report.NewWriter(cfg.Report.Path, cfg.Report.Format)),
	)

	return geocoder.Run(ctx, addrs)
}

func init() {
	runCmd.Flags().Bool("skip-download", false, "geocode an already extracted dump")
	rootCmd.AddCommand(runCmd)
}
