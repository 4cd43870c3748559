package aggregator

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

func newTestAggregator(t *testing.T, cache map[string]any) (*Aggregator, *db.DB) {
	t.Helper()
	dir := t.TempDir()

	statsPath := filepath.Join(dir, "stats-cache.json")
	if cache != nil {
		data, err := json.Marshal(cache)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(statsPath, data, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	store, err := db.New(filepath.Join(dir, "analytics.db"))
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	a := New(store, pricing.Default(), statsPath)
	a.Clock = func() time.Time { return fixedNow }
	return a, store
}

func day(offset int) string {
	return fixedNow.AddDate(0, 0, offset).Format(models.DateLayout)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuild_OpusCost(t *testing.T) {
	a, _ := newTestAggregator(t, map[string]any{
		"modelUsage": map[string]any{
			"claude-opus-4-5": map[string]any{"inputTokens": 1000000, "outputTokens": 200000},
		},
	})

	res := a.Build(nil, nil)
	if res.Status != models.StatusOK {
		t.Fatalf("Status = %v, err = %v", res.Status, res.Err)
	}
	if got := res.Value.AllTime.Cost; !approx(got, 30) {
		t.Errorf("AllTime.Cost = %f, want 30", got)
	}
	if got := res.Value.AllTime.Tokens; got != 1200000 {
		t.Errorf("AllTime.Tokens = %d", got)
	}
	if len(res.Value.Models) != 1 || !approx(res.Value.Models[0].Percent, 100) {
		t.Errorf("Models = %+v", res.Value.Models)
	}
}

func TestBuild_Streak(t *testing.T) {
	tests := []struct {
		name   string
		active []int
		want   int
	}{
		{"run ending today", []int{0, -1, -2, -3, -4}, 5},
		{"today not yet recorded", []int{-1, -2, -3}, 3},
		{"gap resets", []int{0, -1, -3, -4}, 2},
		{"nothing recent", []int{-5, -6}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var activity []map[string]any
			for _, off := range tt.active {
				activity = append(activity, map[string]any{"date": day(off), "messageCount": 3, "sessionCount": 1})
			}
			a, _ := newTestAggregator(t, map[string]any{"dailyActivity": activity})

			got := a.Build(nil, nil).Value.FunStats.Streak
			if got != tt.want {
				t.Errorf("Streak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreak_Capped(t *testing.T) {
	active := make(map[string]bool)
	for i := 0; i < 500; i++ {
		active[fixedNow.AddDate(0, 0, -i).Format(models.DateLayout)] = true
	}
	if got := streak(active, fixedNow); got != maxStreakDays {
		t.Errorf("streak = %d, want %d", got, maxStreakDays)
	}
}

func TestBuild_HourScores(t *testing.T) {
	a, _ := newTestAggregator(t, map[string]any{
		"hourCounts": map[string]int{"22": 10, "6": 5},
	})

	fs := a.Build(nil, nil).Value.FunStats
	if fs.PeakHour != "10 PM" {
		t.Errorf("PeakHour = %q, want 10 PM", fs.PeakHour)
	}
	if fs.NightOwlScore != 67 {
		t.Errorf("NightOwlScore = %d, want 67", fs.NightOwlScore)
	}
	if fs.EarlyBirdScore != 33 {
		t.Errorf("EarlyBirdScore = %d, want 33", fs.EarlyBirdScore)
	}
}

func TestFormatHour(t *testing.T) {
	tests := map[int]string{0: "12 AM", 1: "1 AM", 11: "11 AM", 12: "12 PM", 13: "1 PM", 23: "11 PM"}
	for h, want := range tests {
		if got := FormatHour(h); got != want {
			t.Errorf("FormatHour(%d) = %q, want %q", h, got, want)
		}
	}
}

func TestBuild_MalformedCacheDegrades(t *testing.T) {
	a, _ := newTestAggregator(t, nil)
	if err := os.WriteFile(a.StatsPath, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	res := a.Build(nil, nil)
	if !res.IsDegraded() || res.Err == nil {
		t.Fatalf("Status = %v, want degraded", res.Status)
	}
	if res.Value == nil || res.Value.AllTime.Cost != 0 || res.Value.FunStats.PeakHour != "N/A" {
		t.Errorf("degraded value = %+v", res.Value)
	}
}

func TestBuild_MissingCacheIsEmpty(t *testing.T) {
	a, _ := newTestAggregator(t, nil)

	res := a.Build(nil, nil)
	if res.Status != models.StatusEmpty {
		t.Errorf("Status = %v, want empty", res.Status)
	}
	if res.Value.DailyHistory == nil {
		t.Error("DailyHistory should be an empty slice")
	}
}

func TestBuild_UnavailableStore(t *testing.T) {
	a, _ := newTestAggregator(t, map[string]any{
		"totalMessages": 5,
		"dailyActivity": []map[string]any{{"date": day(0), "messageCount": 5, "sessionCount": 1}},
	})
	a.Store = db.Unavailable{}

	res := a.Build(nil, nil)
	if res.Status != models.StatusOK {
		t.Fatalf("Status = %v, err = %v", res.Status, res.Err)
	}
	if res.Value.Today.Messages != 5 {
		t.Errorf("Today.Messages = %d", res.Value.Today.Messages)
	}
}

func TestBuild_MergesStoreHistory(t *testing.T) {
	a, store := newTestAggregator(t, map[string]any{
		"dailyActivity": []map[string]any{{"date": day(-1), "messageCount": 4, "sessionCount": 1}},
	})

	old := models.DailySnapshot{Date: day(-40), Cost: 12.5, Messages: 90, Tokens: 1000, Sessions: 3}
	if err := store.UpsertDailySnapshot(old); err != nil {
		t.Fatal(err)
	}

	r := a.Build(nil, nil).Value
	if len(r.DailyHistory) != 2 {
		t.Fatalf("DailyHistory = %+v", r.DailyHistory)
	}
	if r.DailyHistory[0].Date != old.Date || r.DailyHistory[1].Date != day(-1) {
		t.Errorf("history not ordered: %+v", r.DailyHistory)
	}
	if r.AllTime.PeakDay.Date != old.Date || r.AllTime.HighestCostDay.Date != old.Date {
		t.Errorf("notable days = %+v / %+v", r.AllTime.PeakDay, r.AllTime.HighestCostDay)
	}
}

func TestBuild_DailyCostSources(t *testing.T) {
	a, store := newTestAggregator(t, map[string]any{
		"dailyModelTokens": []map[string]any{
			{"date": day(-2), "tokensByModel": map[string]int{"claude-sonnet-4": 1000000}},
			{"date": day(-1), "tokensByModel": map[string]int{"claude-sonnet-4": 1000000}},
		},
	})

	exact := models.ModelUsageRecord{
		Date:        day(-1),
		Model:       "claude-sonnet-4",
		TokenCounts: models.TokenCounts{OutputTokens: 1000000},
	}
	if err := store.UpsertModelUsage(exact); err != nil {
		t.Fatal(err)
	}

	r := a.Build(nil, nil).Value
	entries := map[string]models.DailyEntry{}
	for _, e := range r.DailyHistory {
		entries[e.Date] = e
	}

	blended := pricing.BlendedRate(pricing.Default().Lookup("claude-sonnet-4"))
	if e := entries[day(-2)]; !approx(e.Cost, blended) || !e.Estimated {
		t.Errorf("blended day = %+v, want cost %f", e, blended)
	}
	if e := entries[day(-1)]; !approx(e.Cost, 15) || e.Estimated {
		t.Errorf("exact day = %+v, want cost 15", e)
	}
}

func TestBuild_LiveOverlayAndWriteBack(t *testing.T) {
	a, store := newTestAggregator(t, map[string]any{
		"dailyActivity": []map[string]any{{"date": day(0), "messageCount": 2, "sessionCount": 1}},
	})

	live := &models.LiveStats{
		Date:     day(0),
		Cost:     4.5,
		Messages: 20,
		Tokens:   3000,
		Models: map[string]models.TokenCounts{
			"claude-opus-4": {InputTokens: 1000, OutputTokens: 2000},
		},
	}

	r := a.Build(live, nil).Value
	if !r.LiveApplied {
		t.Error("LiveApplied = false")
	}
	if r.Today.Messages != 20 || r.Today.Cost != 4.5 || r.Today.Sessions != 1 {
		t.Errorf("Today = %+v", r.Today)
	}

	for i := 0; i < 2; i++ {
		a.Build(live, nil)
	}

	snapshots, err := store.GetDailySnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 1 || snapshots[0].Messages != 20 {
		t.Errorf("write-back should converge to one row, got %+v", snapshots)
	}
	usage, _ := store.GetModelUsageForDate(day(0))
	if len(usage) != 1 || usage[0].OutputTokens != 2000 {
		t.Errorf("model usage write-back = %+v", usage)
	}
}

func TestBuild_LiveOverlayRefreshesStoredDay(t *testing.T) {
	a, store := newTestAggregator(t, map[string]any{
		"dailyActivity": []map[string]any{{"date": day(-1), "messageCount": 3, "sessionCount": 1}},
	})

	a.Build(&models.LiveStats{Date: day(0), Messages: 5, Cost: 1, Tokens: 100}, nil)
	r := a.Build(&models.LiveStats{Date: day(0), Messages: 50, Cost: 9, Tokens: 900}, nil).Value
	if r.Today.Messages != 50 || r.Today.Cost != 9 {
		t.Errorf("Today = %+v", r.Today)
	}

	snap, err := store.GetDailySnapshot(day(0))
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.Messages != 50 || snap.Cost != 9 || snap.Tokens != 900 {
		t.Errorf("stored today = %+v, want the latest live values", snap)
	}

	r = a.Build(nil, nil).Value
	if r.Today.Messages != 50 || r.Today.Cost != 9 {
		t.Errorf("Today without live stats = %+v", r.Today)
	}
}

func TestBuild_Trend(t *testing.T) {
	tests := []struct {
		name          string
		recent, prior float64
		want          models.Trend
	}{
		{"up", 20, 10, models.TrendUp},
		{"down", 5, 10, models.TrendDown},
		{"stable", 10.5, 10, models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := []models.DailyEntry{
				{Date: day(-10), Cost: tt.prior},
				{Date: day(-2), Cost: tt.recent},
				{Date: day(-30), Cost: 1000},
			}
			got, _ := trend(history, fixedNow)
			if got != tt.want {
				t.Errorf("trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuild_ConversationScores(t *testing.T) {
	a, _ := newTestAggregator(t, map[string]any{
		"modelUsage": map[string]any{
			"claude-sonnet-4": map[string]any{"inputTokens": 100, "cacheReadInputTokens": 900},
		},
	})

	conv := models.NewConversationStats()
	conv.UserMessages = 10
	conv.PleaseCount = 4
	conv.ThanksCount = 3
	conv.CurseWords = 1
	conv.FrustrationWords = 1

	fs := a.Build(nil, conv).Value.FunStats
	if fs.PolitenessScore != 70 {
		t.Errorf("PolitenessScore = %d, want 70", fs.PolitenessScore)
	}
	if fs.FrustrationIndex != 20 {
		t.Errorf("FrustrationIndex = %d, want 20", fs.FrustrationIndex)
	}
	if !approx(fs.CacheHitRatio, 90) {
		t.Errorf("CacheHitRatio = %f, want 90", fs.CacheHitRatio)
	}
	if want := 900.0 / 1e6 * (3 - 0.30); !approx(fs.CacheSavings, want) {
		t.Errorf("CacheSavings = %f, want %f", fs.CacheSavings, want)
	}
}

func TestAchievements(t *testing.T) {
	r := models.DefaultReport()
	r.AllTime.Messages = 1500
	r.AllTime.Cost = 150
	r.FunStats.Streak = 8

	unlocked := map[string]bool{}
	for _, a := range achievements(r, nil) {
		unlocked[a.ID] = a.Unlocked
	}

	for _, id := range []string{"first_message", "chatterbox", "streak_7", "big_spender"} {
		if !unlocked[id] {
			t.Errorf("%s should be unlocked", id)
		}
	}
	for _, id := range []string{"marathoner", "streak_30", "whale", "code_1k"} {
		if unlocked[id] {
			t.Errorf("%s should be locked", id)
		}
	}
	if len(unlocked) != len(achievementRules) {
		t.Errorf("got %d achievements, want %d", len(unlocked), len(achievementRules))
	}
}
