// Package storage provides database access for the organizations directory.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver identifies the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

var memDBSeq atomic.Int64

// DB holds the database connection pools.
// For SQLite, separate read and write pools leverage WAL mode's concurrent
// read capability; the write pool is held to a single connection. For
// Postgres both fields share one pool.
type DB struct {
	Driver  Driver
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *zap.SugaredLogger
}

// Open connects to the configured backend. For sqlite, dsn is a file path or
// ":memory:"; for postgres, a libpq-style DSN or URL.
func Open(driver Driver, dsn string, logger *zap.SugaredLogger) (*DB, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(dsn, logger)
	case DriverPostgres:
		return openPostgres(dsn, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

func openSQLite(dbPath string, logger *zap.SugaredLogger) (*DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// In-memory databases need shared cache so both pools see one database.
	// Each Open gets its own named instance so separate databases stay isolated.
	actualPath := dbPath
	if dbPath == ":memory:" {
		actualPath = fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memDBSeq.Add(1))
	}

	writeDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite write pool: %w", err)
	}
	if err := configureSQLiteConn(writeDB, dbPath); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write pool: %w", err)
	}
	// WAL mode allows exactly one writer at a time.
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)

	readDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open sqlite read pool: %w", err)
	}
	if err := configureSQLiteConn(readDB, dbPath); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to configure read pool: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	logger.Infow("SQLite database initialized", "path", dbPath)

	return &DB{
		Driver:  DriverSQLite,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	}, nil
}

func configureSQLiteConn(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite disables foreign keys by default.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys not enabled (got %d)", fkEnabled)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	// In-memory databases report "memory" rather than "wal".
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got %s)", journalMode)
	}

	return nil
}

func openPostgres(dsn string, logger *zap.SugaredLogger) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN cannot be empty")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	logger.Info("Postgres database initialized")

	return &DB{
		Driver:  DriverPostgres,
		WriteDB: db,
		ReadDB:  db,
		Logger:  logger,
	}, nil
}

// Rebind rewrites ? placeholders to the driver's native form.
// Queries throughout this package are written with ? and rebound at the edge,
// so the same storage code serves both backends.
func (d *DB) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// WithTransaction executes fn within a transaction on the write pool,
// rolling back on error or panic.
func (d *DB) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := d.WriteDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction (original error: %w, rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (d *DB) HealthCheck() error {
	return d.ReadDB.Ping()
}

// Close closes both connection pools.
func (d *DB) Close() error {
	writeErr := d.WriteDB.Close()
	var readErr error
	if d.ReadDB != d.WriteDB {
		readErr = d.ReadDB.Close()
	}
	if writeErr != nil {
		return fmt.Errorf("failed to close write pool: %w", writeErr)
	}
	if readErr != nil {
		return fmt.Errorf("failed to close read pool: %w", readErr)
	}
	return nil
}
