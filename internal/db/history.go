package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// GetDateRange returns the oldest and newest snapshot dates.
// Both are empty when the store holds no snapshots.
func (db *DB) GetDateRange() (oldest, newest string, err error) {
	query := `SELECT COALESCE(MIN(date), ''), COALESCE(MAX(date), '') FROM daily_snapshots`
	if err := db.QueryRowContext(context.Background(), query).Scan(&oldest, &newest); err != nil {
		return "", "", fmt.Errorf("failed to get date range: %w", err)
	}
	return oldest, newest, nil
}

// GetTotals sums every stored daily snapshot.
func (db *DB) GetTotals() (models.HistoryTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(cost), 0),
			COALESCE(SUM(messages), 0),
			COALESCE(SUM(tokens), 0),
			COALESCE(SUM(sessions), 0),
			COUNT(*)
		FROM daily_snapshots
	`

	var t models.HistoryTotals
	err := db.QueryRowContext(context.Background(), query).Scan(
		&t.Cost, &t.Messages, &t.Tokens, &t.Sessions, &t.Days)
	if err != nil {
		return models.HistoryTotals{}, fmt.Errorf("failed to get totals: %w", err)
	}
	return t, nil
}

// ClearHistoryBeforeDate deletes snapshot and model usage rows dated
// strictly before date and returns how many rows were removed in total.
func (db *DB) ClearHistoryBeforeDate(date string) (int64, error) {
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	for _, table := range []string{"daily_snapshots", "model_usage"} {
		res, err := tx.ExecContext(context.Background(),
			"DELETE FROM "+table+" WHERE date < ?", date)
		if err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count cleared rows: %w", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}
	return deleted, nil
}

// Truncate removes all history rows. Metadata is kept.
func (db *DB) Truncate() error {
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"daily_snapshots", "model_usage"} {
		if _, err := tx.ExecContext(context.Background(), "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit truncate: %w", err)
	}
	return nil
}

// MergeDailySnapshot adds s into the row for its date, inserting the row when
// none exists. It reports whether a new row was inserted.
func (db *DB) MergeDailySnapshot(s models.DailySnapshot) (inserted bool, err error) {
	existing, err := db.GetDailySnapshot(s.Date)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, db.UpsertDailySnapshot(s)
	}

	_, err = db.ExecContext(context.Background(), `
		UPDATE daily_snapshots SET
			cost = cost + ?,
			messages = messages + ?,
			tokens = tokens + ?,
			sessions = sessions + ?,
			updated_at = datetime('now')
		WHERE date = ?
	`, s.Cost, max(s.Messages, 0), max(s.Tokens, 0), max(s.Sessions, 0), s.Date)
	if err != nil {
		return false, fmt.Errorf("failed to merge daily snapshot %s: %w", s.Date, err)
	}
	return false, nil
}

// MergeModelUsage adds r into the row for (date, model), inserting the row
// when none exists. It reports whether a new row was inserted.
func (db *DB) MergeModelUsage(r models.ModelUsageRecord) (inserted bool, err error) {
	var one int
	err = db.QueryRowContext(context.Background(),
		"SELECT 1 FROM model_usage WHERE date = ? AND model = ?", r.Date, r.Model).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return true, db.UpsertModelUsage(r)
	case err != nil:
		return false, fmt.Errorf("failed to look up model usage %s/%s: %w", r.Date, r.Model, err)
	}

	t := r.TokenCounts.Clamp()
	_, err = db.ExecContext(context.Background(), `
		UPDATE model_usage SET
			input_tokens = input_tokens + ?,
			output_tokens = output_tokens + ?,
			cache_read_tokens = cache_read_tokens + ?,
			cache_write_tokens = cache_write_tokens + ?
		WHERE date = ? AND model = ?
	`, t.InputTokens, t.OutputTokens, t.CacheReadTokens, t.CacheWriteTokens, r.Date, r.Model)
	if err != nil {
		return false, fmt.Errorf("failed to merge model usage %s/%s: %w", r.Date, r.Model, err)
	}
	return false, nil
}

// InsertDailySnapshotIfAbsent writes s only when its date has no row yet.
// It reports whether the row was written.
func (db *DB) InsertDailySnapshotIfAbsent(s models.DailySnapshot) (bool, error) {
	res, err := db.ExecContext(context.Background(), `
		INSERT OR IGNORE INTO daily_snapshots (date, cost, messages, tokens, sessions, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
	`, s.Date, s.Cost, max(s.Messages, 0), max(s.Tokens, 0), max(s.Sessions, 0))
	if err != nil {
		return false, fmt.Errorf("failed to insert daily snapshot %s: %w", s.Date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count inserted rows: %w", err)
	}
	return n > 0, nil
}
