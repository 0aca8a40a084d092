package main

import (
	"bufio"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/export"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode addresses from a plain text file",
	Long: `Geocode a prepared address list (one zip-code/municipality string per
line) instead of extracting addresses from the MaStR dump. Uses the same
cache, fallback strategy and export as the full pipeline.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		for _, section := range []string{"geocoding", "cache", "export"} {
			if err := cfg.Validate(section); err != nil {
				return err
			}
		}

		input, err := cmd.Flags().GetString("input")
		if err != nil {
			return eris.Wrap(err, "geocode: read flag")
		}

		addrs, err := readAddressFile(input)
		if err != nil {
			return err
		}
		zap.L().Info("address list read", zap.String("path", input), zap.Int("addresses", len(addrs)))

		result, err := geocodeAddresses(ctx, addrs)
		if err != nil {
			return err
		}

		if err := export.Write(result.Table, cfg.Export); err != nil {
			return err
		}

		zap.L().Info("geocoding complete",
			zap.String("run_id", result.Report.RunID),
			zap.Int("exported", len(result.Table)),
			zap.Int("failures", len(result.Report.Failures)),
		)
		return nil
	},
}

// readAddressFile reads one address per line, skipping blanks and
// dropping duplicates while preserving order.
func readAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	seen := make(map[string]struct{})
	var addrs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		addr := strings.TrimSpace(scanner.Text())
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "geocode: read %s", path)
	}
	return addrs, nil
}

func init() {
	geocodeCmd.Flags().String("input", "addresses.txt", "path to the address list")
	rootCmd.AddCommand(geocodeCmd)
}
