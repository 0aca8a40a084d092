package mastr

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/egon-data/mastr-geocoding/internal/config"
)

// Column names in the raw technology CSVs.
const (
	colZip          = "Postleitzahl"
	colMunicipality = "Gemeinde"
	colFederalState = "Bundesland"
	colStandort     = "Standort"
)

// readerConcurrency bounds parallel file reads. Only local I/O runs in
// parallel here; external lookups stay strictly sequential downstream.
const readerConcurrency = 4

// DumpDir returns the directory holding the extracted technology CSVs.
func DumpDir(cfg config.MaStRConfig) string {
	zipBase := strings.TrimSuffix(Format(cfg.ZipName, cfg.DumpDate), ".zip")
	return filepath.Join(cfg.DataDir, "dump_"+cfg.DumpDate, zipBase)
}

// Format substitutes the first "{}" placeholder of a dump name template.
func Format(template, value string) string {
	return strings.Replace(template, "{}", value, 1)
}

// ZipAndMunicipality reads every technology file and returns the
// deduplicated address list, in first-seen order across files in
// configured technology order.
func ZipAndMunicipality(ctx context.Context, cfg config.MaStRConfig) ([]string, error) {
	dir := DumpDir(cfg)
	log := zap.L().With(zap.String("component", "mastr.reader"))
	log.Info("reading MaStR data", zap.String("dir", dir))

	perFile := make([][]string, len(cfg.Technologies))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(readerConcurrency)
	for i, tech := range cfg.Technologies {
		eg.Go(func() error {
			path := filepath.Join(dir, Format(cfg.FileName, tech))
			addrs, err := readTechnologyFile(gCtx, path, cfg.FederalState)
			if err != nil {
				return eris.Wrapf(err, "mastr: read %s", path)
			}
			perFile[i] = addrs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, addrs := range perFile {
		for _, a := range addrs {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}

	log.Info("address extraction done", zap.Int("unique_addresses", len(out)))
	return out, nil
}

// technologyRow carries the cells a single record contributes.
type technologyRow struct {
	zip          string
	municipality string
	federalState string
	standort     string
}

// readTechnologyFile extracts address strings from one technology CSV.
// The federal-state filter is applied per file, against the states that
// actually occur in that file.
func readTechnologyFile(ctx context.Context, path, federalState string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colZip, colMunicipality, colFederalState} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("missing column %s", required)
		}
	}
	_, hasStandort := idx[colStandort]

	var rows []technologyRow
	states := make(map[string]struct{})
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read record")
		}

		row := technologyRow{
			zip:          cell(rec, idx[colZip]),
			municipality: cell(rec, idx[colMunicipality]),
			federalState: cell(rec, idx[colFederalState]),
		}
		if hasStandort {
			row.standort = cell(rec, idx[colStandort])
		}
		if row.federalState != "" {
			states[row.federalState] = struct{}{}
		}
		rows = append(rows, row)
	}

	_, filter := states[federalState]
	if filter {
		zap.L().Debug("applying federal state filter",
			zap.String("file", filepath.Base(path)),
			zap.String("federal_state", federalState),
		)
	}

	log := zap.L().With(zap.String("file", filepath.Base(path)))

	var out []string
	var ok, parsed, dropped int
	for _, row := range rows {
		if filter && row.federalState != federalState {
			continue
		}

		if zip, valid := ParseZip(row.zip); valid && row.municipality != "" {
			out = append(out, Address(zip, row.municipality))
			ok++
			continue
		}

		if row.standort == "" {
			continue
		}
		addr, found := FromStandort(row.standort)
		if !found {
			log.Warn("could not identify zip code, dropping entry",
				zap.String("standort", row.standort),
			)
			dropped++
			continue
		}
		out = append(out, addr)
		parsed++
	}

	log.Info("technology file read",
		zap.Int("rows", len(rows)),
		zap.Int("valid", ok),
		zap.Int("parsed_from_standort", parsed),
		zap.Int("dropped", dropped),
	)
	return out, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
