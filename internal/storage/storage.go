// Package storage provides the daemon's optional Postgres-backed
// registry of virtual-library folder paths, plus the schema migration
// that creates its backing table. It is entirely optional: cmd/timerd
// skips it entirely when DATABASE_URL is unset, and /debug/libraries
// reports an empty list rather than erroring.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a connection pool against databaseURL and verifies it
// with a ping before returning.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

const librariesTableDDL = `
CREATE TABLE IF NOT EXISTS virtual_libraries (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	folder     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the virtual_libraries table if it does not already
// exist. It is idempotent and safe to call on every daemon startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	exists, err := TableExists(ctx, pool, "virtual_libraries")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := pool.Exec(ctx, librariesTableDDL); err != nil {
		return fmt.Errorf("create virtual_libraries table: %w", err)
	}
	return nil
}

// TableExists reports whether a table named table is present in the
// current database's public schema.
func TableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	)`
	var exists bool
	if err := pool.QueryRow(ctx, q, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table %s exists: %w", table, err)
	}
	return exists, nil
}

// Library is one registered virtual-library folder.
type Library struct {
	ID     int64
	Name   string
	Folder string
}

// Registry is the virtual-library folder registry backed by Postgres.
type Registry struct {
	pool *pgxpool.Pool
}

// NewRegistry returns a Registry backed by pool. Callers should call
// Migrate first.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

// Register inserts or updates a virtual library's folder path.
func (r *Registry) Register(ctx context.Context, name, folder string) error {
	const q = `
		INSERT INTO virtual_libraries (name, folder)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET folder = EXCLUDED.folder`
	if _, err := r.pool.Exec(ctx, q, name, folder); err != nil {
		return fmt.Errorf("register library %s: %w", name, err)
	}
	return nil
}

// List returns every registered virtual library, ordered by name.
func (r *Registry) List(ctx context.Context) ([]Library, error) {
	const q = `SELECT id, name, folder FROM virtual_libraries ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var out []Library
	for rows.Next() {
		var l Library
		if err := rows.Scan(&l.ID, &l.Name, &l.Folder); err != nil {
			return nil, fmt.Errorf("scan library row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
