// Package migrator applies the embedded SQL migrations in file name
// order, tracking applied versions in a migrations table.
package migrator

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

func New(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

func (m *Migrator) Migrate(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS migrations (
		name VARCHAR NOT NULL PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	names, err := fs.Glob(m.fsys, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}

	for _, name := range names {
		applied, err := m.isApplied(ctx, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		sql, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %q: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO migrations (name) VALUES ($1)", name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %q: %w", name, err)
		}
	}

	return nil
}

func (m *Migrator) isApplied(ctx context.Context, name string) (bool, error) {
	var applied bool
	err := m.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", name).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("check migration %q: %w", name, err)
	}
	return applied, nil
}
