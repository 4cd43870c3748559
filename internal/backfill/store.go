package backfill

import (
	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// WriteToStore inserts days that the store does not know yet. Existing dates
// are left untouched and counted as skipped.
func WriteToStore(store db.HistoryStore, days []*DayStats) (imported, skipped int, err error) {
	if !store.Available() {
		return 0, 0, db.ErrStoreUnavailable
	}

	for _, d := range days {
		written, err := store.InsertDailySnapshotIfAbsent(models.DailySnapshot{
			Date:     d.Date,
			Cost:     d.Cost,
			Messages: d.Messages,
			Tokens:   d.Tokens(),
			Sessions: d.Sessions,
		})
		if err != nil {
			return imported, skipped, err
		}
		if !written {
			skipped++
			continue
		}

		err = store.UpsertModelUsage(models.ModelUsageRecord{
			Date:  d.Date,
			Model: WebModel,
			TokenCounts: models.TokenCounts{
				InputTokens:      d.InputTokens,
				OutputTokens:     d.OutputTokens,
				CacheReadTokens:  d.CacheReadTokens,
				CacheWriteTokens: d.CacheWriteTokens,
			},
		})
		if err != nil {
			return imported, skipped, err
		}
		imported++
	}

	if imported > 0 {
		if err := store.Save(); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, nil
}
