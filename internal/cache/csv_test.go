package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

func TestCSVStore_MissingFileIsEmptyCache(t *testing.T) {
	s := NewCSV(filepath.Join(t.TempDir(), "nope.csv"))

	entries, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCSVStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoding_cache.csv")
	s := NewCSV(path)
	ctx := context.Background()

	alt := 0.0
	in := []Entry{
		{
			ZipAndMunicipality: "10115 Berlin, Deutschland",
			Source:             geocode.SourceOriginal,
			Latitude:           ptr(52.532),
			Longitude:          ptr(13.385),
			Altitude:           &alt,
		},
		{
			ZipAndMunicipality: "99999 Atlantis, Deutschland",
			Source:             geocode.SourceFailed,
		},
	}
	require.NoError(t, s.Persist(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "10115 Berlin, Deutschland", out[0].ZipAndMunicipality)
	assert.Equal(t, geocode.SourceOriginal, out[0].Source)
	require.NotNil(t, out[0].Latitude)
	assert.InDelta(t, 52.532, *out[0].Latitude, 1e-9)

	assert.Equal(t, geocode.SourceFailed, out[1].Source)
	assert.Nil(t, out[1].Latitude)
	assert.Nil(t, out[1].Longitude)
}

func TestCSVStore_PersistOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoding_cache.csv")
	s := NewCSV(path)
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, []Entry{failed("A", geocode.SourceFailed)}))
	require.NoError(t, s.Persist(ctx, []Entry{coord("B", geocode.SourceOriginal, 50.0, 8.0)}))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].ZipAndMunicipality)

	// The temp file must not linger next to the cache.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".geocoding_cache-"), "leftover temp file %s", e.Name())
	}
}

func TestCSVStore_HeaderOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoding_cache.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("zip_and_municipality,geocode_source,latitude,longitude,altitude\n"), 0o644))

	entries, err := NewCSV(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCSVStore_MalformedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoding_cache.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"zip_and_municipality,geocode_source,latitude,longitude,altitude\n"+
			"10115 Berlin; Deutschland,original,not-a-number,13.385,0\n"), 0o644))

	_, err := NewCSV(path).Load(context.Background())
	require.Error(t, err)
}

func ptr(v float64) *float64 { return &v }
