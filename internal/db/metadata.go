package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var hostSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

// GetMeta returns the metadata value for key, or "" when unset.
func (db *DB) GetMeta(key string) (string, error) {
	var value sql.NullString
	err := db.QueryRowContext(context.Background(),
		"SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return value.String, nil
}

// SetMeta stores a metadata value, replacing any previous one.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.ExecContext(context.Background(),
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

// MachineID returns the identifier of this installation.
func (db *DB) MachineID() string {
	return db.machineID
}

// ensureMachineID loads the persisted machine id or generates one.
func (db *DB) ensureMachineID() (string, error) {
	id, err := db.GetMeta(metaMachineID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = NewMachineID()
	if err := db.SetMeta(metaMachineID, id); err != nil {
		return "", err
	}
	return id, nil
}

// NewMachineID builds "<hostname>-<random suffix>".
func NewMachineID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	host = strings.Trim(hostSanitizer.ReplaceAllString(strings.ToLower(host), "-"), "-")
	if host == "" {
		host = "unknown"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return host + "-" + suffix
}
