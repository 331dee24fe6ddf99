package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is the subset of *pgxpool.Pool the migrator needs.
type Executor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Migration is one SQL file named {version}_{name}.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult summarizes a Run.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migrator applies embedded SQL migrations in version order.
type Migrator struct {
	fsys fs.FS
	dir  string
}

func NewMigrator(fsys fs.FS, dir string) *Migrator {
	if dir == "" {
		dir = "."
	}
	return &Migrator{fsys: fsys, dir: dir}
}

// ParseMigrations reads and sorts the migration files. Files that do not
// match the naming pattern are ignored.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, _ := strconv.Atoi(matches[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: matches[2], SQL: string(content)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Run applies every pending migration, each in its own transaction.
func (m *Migrator) Run(ctx context.Context, exec Executor) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}

	if _, err := exec.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return res, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, exec)
	if err != nil {
		return res, fmt.Errorf("getting applied migrations: %w", err)
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return res, err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := applyMigration(ctx, exec, mig); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}

	res.Duration = time.Since(start)
	return res, nil
}

func appliedVersions(ctx context.Context, exec Executor) (map[int]bool, error) {
	rows, err := exec.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, exec Executor, mig Migration) error {
	tx, err := exec.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
