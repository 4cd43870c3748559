package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
)

// migration is a column-additive schema step. Steps never drop or rewrite rows.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 2,
		statements: []string{
			"ALTER TABLE daily_snapshots ADD COLUMN sessions INTEGER DEFAULT 0",
		},
	},
	{
		version: 3,
		statements: []string{
			"ALTER TABLE daily_snapshots ADD COLUMN updated_at TEXT",
			"ALTER TABLE model_usage ADD COLUMN cache_write_tokens INTEGER DEFAULT 0",
		},
	},
}

// SchemaVersion returns the version recorded in metadata, 0 when absent.
func (db *DB) SchemaVersion() (int, error) {
	value, err := db.GetMeta(metaSchemaVersion)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", value, err)
	}
	return v, nil
}

// migrate brings the schema up to currentSchemaVersion.
func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf(
			"database schema version %d is newer than supported (max: %d); upgrade or delete %s",
			version, currentSchemaVersion, db.path)
	}
	if version == currentSchemaVersion {
		return nil
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := db.ExecContext(context.Background(), stmt); err != nil {
				if isDuplicateColumn(err) {
					continue
				}
				return fmt.Errorf("migration to v%d failed: %w", m.version, err)
			}
		}
		logger.Debug("applied schema migration", "version", m.version)
	}

	if err := db.SetMeta(metaSchemaVersion, strconv.Itoa(currentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// isDuplicateColumn reports whether err is SQLite's "column already exists" error.
func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
