package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/TobiSchelling/BasketMiner/internal/logging"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// DB wraps a database/sql connection.
type DB struct {
	conn   *sql.DB
	driver string
	path   string
}

// Open creates or opens the basketminer SQLite store at the given path and
// brings its schema up to date.
func Open(dbPath string, logger *zap.Logger) (*DB, error) {
	logger = logging.OrNop(logger)
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open(DriverSQLite, dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, driver: DriverSQLite, path: dbPath}, nil
}

// OpenReader opens an existing dataset for reading. SQLite files are opened
// with query_only set and must already exist; Postgres DSNs are pinged.
// No schema is applied.
func OpenReader(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if _, err := os.Stat(dsn); err != nil {
			return nil, fmt.Errorf("opening dataset: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting query_only: %w", err)
		}
	}
	return &DB{conn: conn, driver: driver, path: dsn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path or DSN.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}
