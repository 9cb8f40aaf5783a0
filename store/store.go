// Package store persists committed scenarios and run summaries. A plain path
// opens a SQLite file; a postgres:// or postgresql:// URL opens PostgreSQL.
// Both share one schema and one set of queries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a scenario does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout stores timestamps as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// migration is one schema step. Versions are applied in order and recorded
// in schema_version.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "scenarios",
		sql: `
CREATE TABLE scenarios (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	base_date       TEXT NOT NULL,
	forecast_months INTEGER NOT NULL,
	revision        INTEGER NOT NULL,
	committed_at    TEXT NOT NULL
);
CREATE TABLE allocations (
	scenario_id     TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	id              TEXT NOT NULL,
	employee_id     TEXT NOT NULL,
	subject_id      TEXT NOT NULL DEFAULT '',
	type            TEXT NOT NULL,
	percentage      DOUBLE PRECISION NOT NULL,
	start_date      TEXT NOT NULL,
	end_date        TEXT,
	confidence      INTEGER NOT NULL,
	skill_category  TEXT,
	skill_level     TEXT,
	hourly_rate     DOUBLE PRECISION,
	estimated_hours DOUBLE PRECISION,
	PRIMARY KEY (scenario_id, id)
);
CREATE INDEX idx_allocations_employee ON allocations(employee_id);`,
	},
	{
		version: 2,
		name:    "runs",
		sql: `
CREATE TABLE runs (
	id               TEXT PRIMARY KEY,
	command          TEXT NOT NULL,
	scenario_id      TEXT NOT NULL DEFAULT '',
	started_at       TEXT NOT NULL,
	duration_ms      INTEGER NOT NULL,
	status           TEXT NOT NULL,
	records          INTEGER NOT NULL DEFAULT 0,
	conflicts        INTEGER NOT NULL DEFAULT 0,
	failed_employees TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_runs_started ON runs(started_at);`,
	},
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type Store struct {
	dsn     string
	dialect dialect
	db      *sql.DB
}

// IsPostgresDSN reports whether dsn selects the PostgreSQL backend.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open opens the database named by dsn and applies pending migrations.
func Open(dsn string) (*Store, error) {
	if IsPostgresDSN(dsn) {
		return openPostgres(dsn)
	}
	return openSQLite(dsn)
}

func openPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{dsn: dsn, dialect: dialectPostgres, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// openSQLite opens (creating if needed) the database file at path.
func openSQLite(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps pragmas in effect.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{dsn: path, dialect: dialectSQLite, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DSN returns the path or URL the store was opened with.
func (s *Store) DSN() string {
	return s.dsn
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to ensure schema_version table: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.sql); err != nil {
		return err
	}
	if _, err := tx.Exec(s.rebind("INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)"),
		m.version, m.name, time.Now().UTC().Format(timeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
