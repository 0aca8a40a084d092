package cache

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/egon-data/mastr-geocoding/internal/db"
	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

// PostgresStore keeps the cache in a PostgreSQL table, for deployments
// where several pipelines share one cache database.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a Postgres-backed store on the given pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the cache table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			zip_and_municipality TEXT PRIMARY KEY,
			geocode_source       TEXT NOT NULL,
			latitude             DOUBLE PRECISION,
			longitude            DOUBLE PRECISION,
			altitude             DOUBLE PRECISION
		)`)
	if err != nil {
		return eris.Wrap(err, "cache: postgres migrate")
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT zip_and_municipality, geocode_source, latitude, longitude, altitude
		 FROM geocode_cache ORDER BY zip_and_municipality`)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres query")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var source string
		if err := rows.Scan(&e.ZipAndMunicipality, &source, &e.Latitude, &e.Longitude, &e.Altitude); err != nil {
			return nil, eris.Wrap(err, "cache: postgres scan")
		}
		e.Source = geocode.Source(source)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "cache: postgres rows")
	}
	return entries, nil
}

// Persist implements Store. Entries are upserted in one transaction so a
// failed run never leaves a partially updated cache.
func (s *PostgresStore) Persist(ctx context.Context, entries []Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "cache: postgres begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO geocode_cache (zip_and_municipality, geocode_source, latitude, longitude, altitude)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (zip_and_municipality) DO UPDATE SET
				geocode_source = EXCLUDED.geocode_source,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				altitude = EXCLUDED.altitude`,
			e.ZipAndMunicipality, string(e.Source), e.Latitude, e.Longitude, e.Altitude,
		)
		if err != nil {
			return eris.Wrapf(err, "cache: postgres upsert %s", e.ZipAndMunicipality)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "cache: postgres commit")
	}
	return nil
}

// Close implements Store. The pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
