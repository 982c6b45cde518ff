package postgres

import (
	"context"
	"embed"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.up.sql
var migrationFiles embed.FS

// RunMigrations applies the embedded .up.sql files in lexical order, tracking
// applied versions in schema_migrations. Re-running is a no-op.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`)
	if err != nil {
		return err
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]
		err = pool.QueryRow(ctx, `SELECT true FROM schema_migrations WHERE version=$1`, version).Scan(new(bool))
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		data, readErr := migrationFiles.ReadFile("migrations/" + name)
		if readErr != nil {
			return readErr
		}
		if _, execErr := pool.Exec(ctx, string(data)); execErr != nil {
			return execErr
		}
		if _, insertErr := pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, version); insertErr != nil {
			return insertErr
		}
	}
	return nil
}
