package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockKey is the advisory lock guarding concurrent migration runs.
const migrationLockKey = 7203

// Migrator applies the embedded SQL migrations in filename order, tracking
// applied versions in a schema_migrations table. It is safe to run on every
// startup: applied migrations are skipped and an advisory lock serializes
// concurrent instances.
type Migrator struct {
	client *pg.Client
	logger *logger.Logger
}

func NewMigrator(client *pg.Client, log *logger.Logger) *Migrator {
	return &Migrator{client: client, logger: log}
}

func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.client.Pool.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return storeErr("acquire migration lock", err)
	}
	defer func() {
		_, _ = m.client.Pool.Exec(ctx, `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	if _, err := m.client.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return storeErr("create schema_migrations table", err)
	}

	applied := map[string]bool{}
	rows, err := m.client.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return storeErr("query applied migrations", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return storeErr("scan migration version", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storeErr("read applied migrations", err)
	}

	for _, name := range migrationFiles() {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return storeErr("read migration "+name, err)
		}

		tx, err := m.client.Pool.Begin(ctx)
		if err != nil {
			return storeErr("begin migration "+name, err)
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return storeErr("apply migration "+name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback(ctx)
			return storeErr("record migration "+name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return storeErr("commit migration "+name, err)
		}

		m.logger.Infow("applied migration", "version", version)
	}

	return nil
}

// migrationFiles returns the embedded migration filenames in apply order.
func migrationFiles() []string {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		// The directory is embedded at compile time; this cannot fail at
		// runtime with a well-formed build.
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}
