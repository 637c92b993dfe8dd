package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/logger"
)

var (
	// ErrSchemaBehind means migrations are pending.
	ErrSchemaBehind = errors.New("database schema is behind; run 'habitloop migrate'")
	// ErrSchemaAhead means the database was migrated by a newer build.
	ErrSchemaAhead = errors.New("database schema is newer than this build; upgrade habitloop")
)

// Migration is one NNN_name.sql file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Status compares the ledger with the embedded files.
type Status struct {
	Current int
	Latest  int
	Pending []Migration
}

// Dialect selects the bind-parameter style for ledger writes.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

func (d Dialect) bind(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Runner applies embedded migrations and records each one in
// schema_migrations.
type Runner struct {
	db      *sql.DB
	files   fs.FS
	dialect Dialect
	now     func() time.Time
}

func NewRunner(db *sql.DB, files fs.FS, dialect Dialect) *Runner {
	return &Runner{db: db, files: files, dialect: dialect, now: time.Now}
}

// Parse reads every *.sql file at the root of files, sorted by version.
func Parse(files fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	list := []Migration{}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		m, err := parseName(entry.Name())
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(files, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		m.SQL = string(body)
		list = append(list, m)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Version < list[j].Version })
	for i := 1; i < len(list); i++ {
		if list[i].Version == list[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", list[i].Version)
		}
	}
	return list, nil
}

func parseName(file string) (Migration, error) {
	prefix, name, ok := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
	if !ok || name == "" {
		return Migration{}, fmt.Errorf("invalid migration filename %s (expected NNN_name.sql)", file)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version < 1 {
		return Migration{}, fmt.Errorf("invalid migration version in %s", file)
	}
	return Migration{Version: version, Name: name}, nil
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

// Current returns the highest applied version, 0 on a fresh database.
func (r *Runner) Current(ctx context.Context) (int, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (r *Runner) Status(ctx context.Context) (Status, error) {
	current, err := r.Current(ctx)
	if err != nil {
		return Status{}, err
	}
	list, err := Parse(r.files)
	if err != nil {
		return Status{}, err
	}

	st := Status{Current: current, Pending: []Migration{}}
	for _, m := range list {
		st.Latest = m.Version
		if m.Version > current {
			st.Pending = append(st.Pending, m)
		}
	}
	return st, nil
}

// Check fails with ErrSchemaBehind or ErrSchemaAhead unless the database is
// exactly at the latest version.
func (r *Runner) Check(ctx context.Context) error {
	st, err := r.Status(ctx)
	if err != nil {
		return err
	}
	switch {
	case st.Current > st.Latest:
		return fmt.Errorf("%w (database %d, build %d)", ErrSchemaAhead, st.Current, st.Latest)
	case st.Current < st.Latest:
		return fmt.Errorf("%w (database %d, build %d)", ErrSchemaBehind, st.Current, st.Latest)
	}
	return nil
}

// Up applies pending migrations in order, each in its own transaction, and
// returns the ones that were applied. A failure leaves earlier migrations in
// place.
func (r *Runner) Up(ctx context.Context) ([]Migration, error) {
	st, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}
	if st.Current > st.Latest {
		return nil, fmt.Errorf("%w (database %d, build %d)", ErrSchemaAhead, st.Current, st.Latest)
	}
	if len(st.Pending) == 0 {
		logger.Debug("Schema up to date", "backend", r.dialect, "version", st.Current)
		return []Migration{}, nil
	}

	started := time.Now()
	applied := []Migration{}
	for _, m := range st.Pending {
		if err := r.apply(ctx, m); err != nil {
			return applied, err
		}
		applied = append(applied, m)
		logger.Info("Applied migration", "backend", r.dialect, "version", m.Version, "name", m.Name)
	}
	logger.Info("Schema migrated", "backend", r.dialect, "from", st.Current, "to", st.Latest, "took", time.Since(started))
	return applied, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
	}

	record := fmt.Sprintf("INSERT INTO schema_migrations (version, name, applied_at) VALUES (%s, %s, %s)",
		r.dialect.bind(1), r.dialect.bind(2), r.dialect.bind(3))
	if _, err := tx.ExecContext(ctx, record, m.Version, m.Name, r.now().UTC().Format(constants.TimestampFormat)); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}
