// Package postgis implements the store interfaces over PostgreSQL/PostGIS,
// the spatial database backing every persisted record in this tree. Every
// repository method takes a context and runs against a pgxpool.Pool,
// mirroring the teacher's
// "inject the dependency, never reach for a package-level global" shape
// (engine/config.go's Manager passed down rather than read off init()).
package postgis

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements store.Store against a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses databaseURL and establishes the pool. Callers are responsible
// for calling Close when done.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgis: parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgis: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgis: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for the migrate subcommand.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
