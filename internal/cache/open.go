package cache

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/egon-data/mastr-geocoding/internal/db"
)

// Open creates the cache store selected by driver: "csv", "sqlite" or
// "postgres". path backs the file drivers, databaseURL the postgres one.
func Open(ctx context.Context, driver, path, databaseURL string) (Store, error) {
	switch driver {
	case "csv":
		return NewCSV(path), nil
	case "sqlite":
		return NewSQLite(path)
	case "postgres":
		pool, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		store := NewPostgres(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &pooledStore{PostgresStore: store, pool: pool}, nil
	default:
		return nil, eris.Errorf("cache: unknown driver %q", driver)
	}
}

// pooledStore owns the pgx pool it was opened with.
type pooledStore struct {
	*PostgresStore
	pool *pgxpool.Pool
}

func (s *pooledStore) Close() error {
	s.pool.Close()
	return nil
}
