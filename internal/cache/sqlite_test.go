package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_EmptyDatabase(t *testing.T) {
	s := newTestSQLite(t)

	entries, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	in := []Entry{
		coord("10115 Berlin, Deutschland", geocode.SourceOriginal, 52.532, 13.385),
		failed("99999 Atlantis, Deutschland", geocode.SourceException),
	}
	require.NoError(t, s.Persist(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, geocode.SourceOriginal, out[0].Source)
	require.NotNil(t, out[0].Longitude)
	assert.InDelta(t, 13.385, *out[0].Longitude, 1e-9)

	assert.Equal(t, geocode.SourceException, out[1].Source)
	assert.Nil(t, out[1].Latitude)
}

func TestSQLiteStore_PersistReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, []Entry{failed("A", geocode.SourceFailed)}))
	require.NoError(t, s.Persist(ctx, []Entry{
		coord("A", geocode.SourceFallback, 52.1, 13.0),
		coord("B", geocode.SourceOriginal, 50.0, 8.0),
	}))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, geocode.SourceFallback, out[0].Source)
	assert.True(t, out[0].Success())
}
