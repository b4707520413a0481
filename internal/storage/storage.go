// Package storage opens the configured database, exposes the Persistence
// Provider built on it, and applies the embedded goose migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers "sqlite" driver for database/sql

	"github.com/pkordes/placekeeper/internal/repo"
	"github.com/pkordes/placekeeper/migrations"
)

// Dialect identifies the database engine behind a Store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store bundles the open connections and the UserRepo built on them.
type Store struct {
	Dialect Dialect
	Users   repo.UserRepo

	pool  *pgxpool.Pool // Postgres only
	sqlDB *sql.DB       // migrations for both dialects; all queries for SQLite
}

// ParseDSN splits a DATABASE_URL into its dialect and the driver-level DSN.
// Postgres URLs pass through unchanged; "sqlite:<path>" (or "sqlite://<path>")
// yields the file path, with "sqlite::memory:" for an in-memory database.
func ParseDSN(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")
		if path == "" {
			return "", "", errors.New("storage.ParseDSN: sqlite URL has no path")
		}
		return DialectSQLite, path, nil
	}
	return "", "", fmt.Errorf("storage.ParseDSN: unsupported database URL scheme in %q", redact(databaseURL))
}

// Open connects to the database named by databaseURL and verifies it is reachable.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	dialect, dsn, err := ParseDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case DialectPostgres:
		return openPostgres(ctx, dsn)
	default:
		return openSQLite(ctx, dsn)
	}
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	// pgxpool.New does not open connections immediately; Ping below does.
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.Open: ping: %w", err)
	}

	// goose needs database/sql; the pgx stdlib driver provides it.
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.Open: open sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(2)

	return &Store{
		Dialect: DialectPostgres,
		Users:   repo.NewUserRepo(pool),
		pool:    pool,
		sqlDB:   sqlDB,
	}, nil
}

func openSQLite(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("storage.Open: ping: %w", err)
	}

	return &Store{
		Dialect: DialectSQLite,
		Users:   repo.NewSQLiteUserRepo(sqlDB),
		sqlDB:   sqlDB,
	}, nil
}

// sqliteDSN attaches the per-connection pragmas the modernc driver applies
// on every new connection.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.sqlDB.PingContext(ctx)
}

// Close releases every connection held by the store.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return s.sqlDB.Close()
}

// SQLDB returns the database/sql handle, for tests that inspect the schema.
func (s *Store) SQLDB() *sql.DB { return s.sqlDB }

// Migrator returns a goose provider over the migrations for this store's dialect.
func (s *Store) Migrator() (*goose.Provider, error) {
	var (
		dialect goose.Dialect
		fsys    fs.FS
	)
	switch s.Dialect {
	case DialectPostgres:
		dialect, fsys = goose.DialectPostgres, migrations.Postgres()
	case DialectSQLite:
		dialect, fsys = goose.DialectSQLite3, migrations.SQLite()
	default:
		return nil, fmt.Errorf("storage.Migrator: unknown dialect %q", s.Dialect)
	}
	p, err := goose.NewProvider(dialect, s.sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("storage.Migrator: %w", err)
	}
	return p, nil
}

// MigrateUp applies every pending migration and returns how many ran.
func (s *Store) MigrateUp(ctx context.Context) (int, error) {
	p, err := s.Migrator()
	if err != nil {
		return 0, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage.MigrateUp: %w", err)
	}
	return len(results), nil
}

// redact hides the password in a URL-shaped DSN before it is put in an error.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}
