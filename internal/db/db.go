// Package db manages the historical usage store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path      string
	machineID string
}

// New creates a new database connection, initializes the schema and runs
// pending migrations.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.migrate(); err != nil {
		_ = db.DB.Close()
		return nil, err
	}

	id, err := db.ensureMachineID()
	if err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to initialize machine id: %w", err)
	}
	db.machineID = id

	logger.Debug("historical store opened", "path", path, "machine_id", id)
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Available reports that the store is backed by a live database.
func (db *DB) Available() bool {
	return true
}

// configure sets up database pragmas.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createMetadataTable(); err != nil {
		return err
	}
	if err := db.createDailySnapshotsTable(); err != nil {
		return err
	}
	return db.createModelUsageTable()
}

func (db *DB) createMetadataTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createDailySnapshotsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS daily_snapshots (
		date TEXT PRIMARY KEY,
		cost REAL DEFAULT 0,
		messages INTEGER DEFAULT 0,
		tokens INTEGER DEFAULT 0,
		sessions INTEGER DEFAULT 0,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createModelUsageTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS model_usage (
		date TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		cache_read_tokens INTEGER DEFAULT 0,
		cache_write_tokens INTEGER DEFAULT 0,
		PRIMARY KEY (date, model)
	);
	CREATE INDEX IF NOT EXISTS idx_model_usage_date ON model_usage(date);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Save flushes every committed write into the single database file.
// Writes made after the last Save may be lost on an unclean shutdown.
func (db *DB) Save() error {
	if _, err := db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to save database: %w", err)
	}
	return nil
}

// Backup writes a compacted copy of the store to path.
func (db *DB) Backup(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

// Close saves and closes the database connection.
func (db *DB) Close() error {
	_ = db.Save()
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
