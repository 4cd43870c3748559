package db

import (
	"testing"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

func TestUpsertDailySnapshot_Overwrites(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	first := models.DailySnapshot{Date: "2024-03-01", Cost: 1.25, Messages: 10, Tokens: 500, Sessions: 2}
	second := models.DailySnapshot{Date: "2024-03-01", Cost: 3.5, Messages: 4, Tokens: 90, Sessions: 1}

	if err := db.UpsertDailySnapshot(first); err != nil {
		t.Fatalf("UpsertDailySnapshot() failed: %v", err)
	}
	if err := db.UpsertDailySnapshot(second); err != nil {
		t.Fatalf("UpsertDailySnapshot() failed: %v", err)
	}

	snapshots, err := db.GetDailySnapshots()
	if err != nil {
		t.Fatalf("GetDailySnapshots() failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("got %d rows for one date, want 1", len(snapshots))
	}
	if snapshots[0] != second {
		t.Errorf("got %+v, want %+v", snapshots[0], second)
	}
}

func TestUpsertDailySnapshot_ClampsNegative(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if err := db.UpsertDailySnapshot(models.DailySnapshot{Date: "2024-03-01", Tokens: -5}); err != nil {
		t.Fatalf("UpsertDailySnapshot() failed: %v", err)
	}

	s, err := db.GetDailySnapshot("2024-03-01")
	if err != nil || s == nil {
		t.Fatalf("GetDailySnapshot() = %v, %v", s, err)
	}
	if s.Tokens != 0 {
		t.Errorf("Tokens = %d, want 0", s.Tokens)
	}
}

func TestGetDailySnapshots_Ordered(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	err := db.UpsertDailySnapshots([]models.DailySnapshot{
		{Date: "2024-03-03", Messages: 3},
		{Date: "2024-03-01", Messages: 1},
		{Date: "2024-03-02", Messages: 2},
	})
	if err != nil {
		t.Fatalf("UpsertDailySnapshots() failed: %v", err)
	}

	snapshots, err := db.GetDailySnapshots()
	if err != nil {
		t.Fatalf("GetDailySnapshots() failed: %v", err)
	}

	want := []string{"2024-03-01", "2024-03-02", "2024-03-03"}
	if len(snapshots) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(snapshots), len(want))
	}
	for i, s := range snapshots {
		if s.Date != want[i] {
			t.Errorf("snapshots[%d].Date = %s, want %s", i, s.Date, want[i])
		}
	}
}

func TestGetDailySnapshot_NotFound(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	s, err := db.GetDailySnapshot("2024-01-01")
	if err != nil {
		t.Fatalf("GetDailySnapshot() failed: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestUpsertModelUsage(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	rec := models.ModelUsageRecord{
		Date:  "2024-03-01",
		Model: "claude-opus-4",
		TokenCounts: models.TokenCounts{
			InputTokens:      100,
			OutputTokens:     200,
			CacheReadTokens:  300,
			CacheWriteTokens: 400,
		},
	}
	if err := db.UpsertModelUsage(rec); err != nil {
		t.Fatalf("UpsertModelUsage() failed: %v", err)
	}

	rec.OutputTokens = 250
	if err := db.UpsertModelUsage(rec); err != nil {
		t.Fatalf("UpsertModelUsage() failed: %v", err)
	}
	other := models.ModelUsageRecord{Date: "2024-03-02", Model: "claude-sonnet-4"}
	if err := db.UpsertModelUsage(other); err != nil {
		t.Fatalf("UpsertModelUsage() failed: %v", err)
	}

	all, err := db.GetModelUsage()
	if err != nil {
		t.Fatalf("GetModelUsage() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rows, want 2", len(all))
	}

	day, err := db.GetModelUsageForDate("2024-03-01")
	if err != nil {
		t.Fatalf("GetModelUsageForDate() failed: %v", err)
	}
	if len(day) != 1 || day[0] != rec {
		t.Errorf("GetModelUsageForDate() = %+v, want [%+v]", day, rec)
	}
}
