package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

const upsertDailySnapshotQuery = `
	INSERT INTO daily_snapshots (date, cost, messages, tokens, sessions, updated_at)
	VALUES (?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT(date) DO UPDATE SET
		cost = excluded.cost,
		messages = excluded.messages,
		tokens = excluded.tokens,
		sessions = excluded.sessions,
		updated_at = excluded.updated_at
`

const upsertModelUsageQuery = `
	INSERT INTO model_usage (
		date, model, input_tokens, output_tokens, cache_read_tokens, cache_write_tokens
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(date, model) DO UPDATE SET
		input_tokens = excluded.input_tokens,
		output_tokens = excluded.output_tokens,
		cache_read_tokens = excluded.cache_read_tokens,
		cache_write_tokens = excluded.cache_write_tokens
`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertDailySnapshot inserts or replaces the snapshot for its date.
func (db *DB) UpsertDailySnapshot(s models.DailySnapshot) error {
	return upsertDailySnapshot(db.DB, s)
}

// UpsertDailySnapshots upserts several snapshots in one transaction.
func (db *DB) UpsertDailySnapshots(snapshots []models.DailySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range snapshots {
		if err := upsertDailySnapshot(tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit daily snapshots: %w", err)
	}
	return nil
}

func upsertDailySnapshot(e execer, s models.DailySnapshot) error {
	_, err := e.ExecContext(context.Background(), upsertDailySnapshotQuery,
		s.Date,
		s.Cost,
		max(s.Messages, 0),
		max(s.Tokens, 0),
		max(s.Sessions, 0),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily snapshot %s: %w", s.Date, err)
	}
	return nil
}

// UpsertModelUsage inserts or replaces the row for (date, model).
func (db *DB) UpsertModelUsage(r models.ModelUsageRecord) error {
	return upsertModelUsage(db.DB, r)
}

func upsertModelUsage(e execer, r models.ModelUsageRecord) error {
	t := r.TokenCounts.Clamp()
	_, err := e.ExecContext(context.Background(), upsertModelUsageQuery,
		r.Date,
		r.Model,
		t.InputTokens,
		t.OutputTokens,
		t.CacheReadTokens,
		t.CacheWriteTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert model usage %s/%s: %w", r.Date, r.Model, err)
	}
	return nil
}

// GetDailySnapshots returns every snapshot ordered by date ascending.
func (db *DB) GetDailySnapshots() ([]models.DailySnapshot, error) {
	query := `
		SELECT date, COALESCE(cost, 0), COALESCE(messages, 0),
			   COALESCE(tokens, 0), COALESCE(sessions, 0)
		FROM daily_snapshots
		ORDER BY date ASC
	`

	rows, err := db.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily snapshots: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var snapshots []models.DailySnapshot
	for rows.Next() {
		var s models.DailySnapshot
		if err := rows.Scan(&s.Date, &s.Cost, &s.Messages, &s.Tokens, &s.Sessions); err != nil {
			return nil, fmt.Errorf("failed to scan daily snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// GetDailySnapshot returns the snapshot for date, or nil when absent.
func (db *DB) GetDailySnapshot(date string) (*models.DailySnapshot, error) {
	query := `
		SELECT date, COALESCE(cost, 0), COALESCE(messages, 0),
			   COALESCE(tokens, 0), COALESCE(sessions, 0)
		FROM daily_snapshots
		WHERE date = ?
	`

	var s models.DailySnapshot
	err := db.QueryRowContext(context.Background(), query, date).Scan(
		&s.Date, &s.Cost, &s.Messages, &s.Tokens, &s.Sessions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily snapshot %s: %w", date, err)
	}
	return &s, nil
}

// GetModelUsage returns every model usage row ordered by date then model.
func (db *DB) GetModelUsage() ([]models.ModelUsageRecord, error) {
	return db.queryModelUsage(`
		SELECT date, model, COALESCE(input_tokens, 0), COALESCE(output_tokens, 0),
			   COALESCE(cache_read_tokens, 0), COALESCE(cache_write_tokens, 0)
		FROM model_usage
		ORDER BY date ASC, model ASC
	`)
}

// GetModelUsageForDate returns the model usage rows for one date.
func (db *DB) GetModelUsageForDate(date string) ([]models.ModelUsageRecord, error) {
	return db.queryModelUsage(`
		SELECT date, model, COALESCE(input_tokens, 0), COALESCE(output_tokens, 0),
			   COALESCE(cache_read_tokens, 0), COALESCE(cache_write_tokens, 0)
		FROM model_usage
		WHERE date = ?
		ORDER BY model ASC
	`, date)
}

func (db *DB) queryModelUsage(query string, args ...any) ([]models.ModelUsageRecord, error) {
	rows, err := db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query model usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.ModelUsageRecord
	for rows.Next() {
		var r models.ModelUsageRecord
		err := rows.Scan(
			&r.Date,
			&r.Model,
			&r.InputTokens,
			&r.OutputTokens,
			&r.CacheReadTokens,
			&r.CacheWriteTokens,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model usage: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
