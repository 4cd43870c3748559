package aggregator

import (
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
	"github.com/j-veylop/claude-usage-analytics/internal/statscache"
)

const (
	maxStreakDays  = 365
	trendThreshold = 10.0
)

func (a *Aggregator) funStats(report *models.UsageReport, cache *statscache.Cache, conv *models.ConversationStats, now time.Time) models.FunStats {
	fs := models.FunStats{
		PeakHour: "N/A",
		Trend:    models.TrendStable,
	}

	active := make(map[string]bool, len(report.DailyHistory))
	for _, e := range report.DailyHistory {
		if e.Messages > 0 {
			active[e.Date] = true
		}
	}
	fs.Streak = streak(active, now)
	fs.WeekendPercent = weekendPercent(report.DailyHistory)

	hours := cache.Hours()
	if conv != nil {
		for h, n := range conv.HourCounts {
			hours[h] += n
		}
	}
	fs.HourCounts = hours
	fs.PeakHour, fs.NightOwlScore, fs.EarlyBirdScore = hourScores(hours)

	fs.Trend, fs.TrendPercent = trend(report.DailyHistory, now)

	all := report.AllTime
	if denom := all.InputTokens + all.CacheReadTokens + all.CacheWriteTokens; denom > 0 {
		fs.CacheHitRatio = float64(all.CacheReadTokens) / float64(denom) * 100
	}
	table := a.table()
	for _, m := range report.Models {
		fs.CacheSavings += pricing.CacheSavings(table.Lookup(m.Model), m.CacheReadTokens)
	}

	if conv != nil && conv.UserMessages > 0 {
		msgs := float64(conv.UserMessages)
		fs.PolitenessScore = capPercent(float64(conv.PleaseCount+conv.ThanksCount) / msgs * 100)
		fs.FrustrationIndex = capPercent(float64(conv.FrustrationWords+conv.CurseWords) / msgs * 100)
	}

	if all.Sessions > 0 {
		fs.AvgSessionMessages = float64(all.Messages) / float64(all.Sessions)
	}
	fs.LongestSessionMessages = cache.LongestSessionMessages()

	return fs
}

// streak counts consecutive active days backward from today, or from
// yesterday when today has no activity yet.
func streak(active map[string]bool, now time.Time) int {
	day := now
	if !active[day.Format(models.DateLayout)] {
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for n < maxStreakDays && active[day.Format(models.DateLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func weekendPercent(history []models.DailyEntry) float64 {
	var total, weekend int64
	for _, e := range history {
		t, err := time.Parse(models.DateLayout, e.Date)
		if err != nil {
			continue
		}
		total += e.Messages
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend += e.Messages
		}
	}
	if total == 0 {
		return 0
	}
	return float64(weekend) / float64(total) * 100
}

// hourScores returns the busiest hour and the night-owl (21:00-04:59) and
// early-bird (05:00-08:59) shares of activity.
func hourScores(hours [24]int) (peak string, nightOwl, earlyBird int) {
	total, best := 0, -1
	for h, n := range hours {
		total += n
		if n > 0 && (best < 0 || n > hours[best]) {
			best = h
		}
	}
	if total == 0 {
		return "N/A", 0, 0
	}

	var night, early int
	for h, n := range hours {
		switch {
		case h >= 21 || h <= 4:
			night += n
		case h >= 5 && h <= 8:
			early += n
		}
	}
	return FormatHour(best),
		int(math.Round(float64(night) / float64(total) * 100)),
		int(math.Round(float64(early) / float64(total) * 100))
}

// FormatHour renders an hour of day as "10 PM".
func FormatHour(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d %s", h, suffix)
}

// trend compares the cost of the last 7 days with the 7 before them.
func trend(history []models.DailyEntry, now time.Time) (models.Trend, float64) {
	recentFrom := now.AddDate(0, 0, -6).Format(models.DateLayout)
	priorFrom := now.AddDate(0, 0, -13).Format(models.DateLayout)
	to := now.Format(models.DateLayout)

	var recent, prior float64
	for _, e := range history {
		switch {
		case e.Date > to || e.Date < priorFrom:
		case e.Date >= recentFrom:
			recent += e.Cost
		default:
			prior += e.Cost
		}
	}

	if prior == 0 {
		if recent > 0 {
			return models.TrendUp, 100
		}
		return models.TrendStable, 0
	}

	pct := (recent - prior) / prior * 100
	switch {
	case pct > trendThreshold:
		return models.TrendUp, pct
	case pct < -trendThreshold:
		return models.TrendDown, pct
	default:
		return models.TrendStable, pct
	}
}

func capPercent(v float64) int {
	return int(math.Round(math.Min(v, 100)))
}
