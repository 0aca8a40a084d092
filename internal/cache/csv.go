package cache

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

var csvHeader = []string{"zip_and_municipality", "geocode_source", "latitude", "longitude", "altitude"}

// CSVStore keeps the cache in a single CSV file. Persist writes to a
// temp file in the same directory and renames it over the target, so a
// crash mid-write never corrupts the previous cache.
type CSVStore struct {
	path string
}

// NewCSV creates a CSV-backed store at the given path.
func NewCSV(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Load implements Store. A missing file is an empty cache.
func (s *CSVStore) Load(_ context.Context) ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "cache: open %s", s.path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read %s", s.path)
	}
	if len(records) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, eris.Errorf("cache: %s row %d has %d columns, want %d", s.path, i+2, len(rec), len(csvHeader))
		}

		e := Entry{
			ZipAndMunicipality: rec[0],
			Source:             geocode.Source(rec[1]),
		}
		if e.Latitude, err = parseFloatCell(rec[2]); err != nil {
			return nil, eris.Wrapf(err, "cache: %s row %d latitude", s.path, i+2)
		}
		if e.Longitude, err = parseFloatCell(rec[3]); err != nil {
			return nil, eris.Wrapf(err, "cache: %s row %d longitude", s.path, i+2)
		}
		if e.Altitude, err = parseFloatCell(rec[4]); err != nil {
			return nil, eris.Wrapf(err, "cache: %s row %d altitude", s.path, i+2)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Persist implements Store.
func (s *CSVStore) Persist(_ context.Context, entries []Entry) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".geocoding_cache-*")
	if err != nil {
		return eris.Wrapf(err, "cache: create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: write header")
	}
	for _, e := range entries {
		rec := []string{
			e.ZipAndMunicipality,
			string(e.Source),
			formatFloatCell(e.Latitude),
			formatFloatCell(e.Longitude),
			formatFloatCell(e.Altitude),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close() //nolint:errcheck
			return eris.Wrapf(err, "cache: write entry %s", e.ZipAndMunicipality)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: flush")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return eris.Wrapf(err, "cache: rename to %s", s.path)
	}
	return nil
}

// Close implements Store.
func (s *CSVStore) Close() error { return nil }

func parseFloatCell(cell string) (*float64, error) {
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatFloatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
