package cache

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

// SQLiteStore keeps the cache in a SQLite database via modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL
// mode and creates the cache table.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	zip_and_municipality TEXT PRIMARY KEY,
	geocode_source       TEXT NOT NULL,
	latitude             REAL,
	longitude            REAL,
	altitude             REAL
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT zip_and_municipality, geocode_source, latitude, longitude, altitude
		 FROM geocode_cache ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite query")
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var e Entry
		var source string
		var lat, lon, alt sql.NullFloat64
		if err := rows.Scan(&e.ZipAndMunicipality, &source, &lat, &lon, &alt); err != nil {
			return nil, eris.Wrap(err, "cache: sqlite scan")
		}
		e.Source = geocode.Source(source)
		e.Latitude = nullableFloat(lat)
		e.Longitude = nullableFloat(lon)
		e.Altitude = nullableFloat(alt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "cache: sqlite rows")
	}
	return entries, nil
}

// Persist implements Store. The whole set is replaced in one transaction.
func (s *SQLiteStore) Persist(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "cache: sqlite begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM geocode_cache`); err != nil {
		return eris.Wrap(err, "cache: sqlite clear")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO geocode_cache (zip_and_municipality, geocode_source, latitude, longitude, altitude)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "cache: sqlite prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.ZipAndMunicipality, string(e.Source),
			sqlFloat(e.Latitude), sqlFloat(e.Longitude), sqlFloat(e.Altitude),
		)
		if err != nil {
			return eris.Wrapf(err, "cache: sqlite insert %s", e.ZipAndMunicipality)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "cache: sqlite commit")
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func sqlFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
