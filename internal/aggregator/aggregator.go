// Package aggregator merges the stats cache, the historical store and live
// measurements into a UsageReport.
package aggregator

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
	"github.com/j-veylop/claude-usage-analytics/internal/statscache"
)

const windowDays = 14

// Aggregator builds usage reports.
type Aggregator struct {
	Store     db.HistoryStore
	Pricing   *pricing.Table
	StatsPath string
	Clock     func() time.Time
}

// New creates an aggregator reading the cache at statsPath.
func New(store db.HistoryStore, table *pricing.Table, statsPath string) *Aggregator {
	return &Aggregator{
		Store:     store,
		Pricing:   table,
		StatsPath: statsPath,
		Clock:     time.Now,
	}
}

func (a *Aggregator) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

func (a *Aggregator) store() db.HistoryStore {
	if a.Store == nil {
		return db.Unavailable{}
	}
	return a.Store
}

func (a *Aggregator) table() *pricing.Table {
	if a.Pricing == nil {
		return pricing.Default()
	}
	return a.Pricing
}

// Build computes the report. live, when non-nil, replaces the values for its
// date. conv may be nil. Failures yield a degraded all-zero report; Build
// never returns an error directly.
func (a *Aggregator) Build(live *models.LiveStats, conv *models.ConversationStats) models.Result[*models.UsageReport] {
	report, status, err := a.build(live, conv)
	if err != nil {
		logger.Warn("usage aggregation degraded", "error", err)
		return models.Degraded(models.DefaultReport(), err)
	}
	if status == models.StatusEmpty {
		return models.Empty(report)
	}
	return models.OK(report)
}

func (a *Aggregator) build(live *models.LiveStats, conv *models.ConversationStats) (*models.UsageReport, models.Status, error) {
	now := a.now()
	today := now.Format(models.DateLayout)
	status := models.StatusOK

	cache, err := statscache.Load(a.StatsPath)
	switch {
	case errors.Is(err, statscache.ErrNotFound):
		logger.Debug("stats cache missing", "path", a.StatsPath)
		cache = &statscache.Cache{}
		status = models.StatusEmpty
	case err != nil:
		return nil, status, err
	}

	store := a.store()
	snapshots, err := store.GetDailySnapshots()
	if err != nil {
		return nil, status, fmt.Errorf("reading daily snapshots: %w", err)
	}
	usageRows, err := store.GetModelUsage()
	if err != nil {
		return nil, status, fmt.Errorf("reading model usage: %w", err)
	}
	if len(snapshots) > 0 {
		status = models.StatusOK
	}

	report := models.DefaultReport()
	report.GeneratedAt = now
	report.Conversation = conv

	a.fillAllTime(report, cache)

	byDate := lo.GroupBy(usageRows, func(r models.ModelUsageRecord) string { return r.Date })
	days := a.cacheDays(cache, byDate)
	computed := slices.Collect(maps.Keys(days))

	for _, s := range snapshots {
		if _, ok := days[s.Date]; ok {
			continue
		}
		days[s.Date] = &models.DailyEntry{
			Date:      s.Date,
			Messages:  s.Messages,
			Sessions:  s.Sessions,
			Tokens:    s.Tokens,
			Cost:      s.Cost,
			Estimated: len(byDate[s.Date]) == 0,
		}
	}

	if live != nil && live.Date != "" {
		entry, ok := days[live.Date]
		if !ok {
			entry = &models.DailyEntry{Date: live.Date}
			days[live.Date] = entry
		}
		// Stored days are only rewritten when live stats touch them.
		if !slices.Contains(computed, live.Date) {
			computed = append(computed, live.Date)
		}
		entry.Messages = live.Messages
		entry.Tokens = live.Tokens
		entry.Cost = live.Cost
		entry.Estimated = false
		report.LiveApplied = true
		status = models.StatusOK
	}

	history := make([]models.DailyEntry, 0, len(days))
	for _, e := range days {
		history = append(history, *e)
	}
	slices.SortFunc(history, func(x, y models.DailyEntry) int { return strings.Compare(x.Date, y.Date) })
	report.DailyHistory = history

	a.fillHistoryTotals(report, cache)
	if e, ok := days[today]; ok {
		report.Today = *e
	} else {
		report.Today = models.DailyEntry{Date: today}
	}
	report.Last14Days = periodStats(history, now, windowDays)

	report.FunStats = a.funStats(report, cache, conv, now)
	report.Achievements = achievements(report, conv)

	a.writeBack(days, computed, live)

	return report, status, nil
}

// fillAllTime computes lifetime cost and tokens from the cache's per-model totals.
func (a *Aggregator) fillAllTime(report *models.UsageReport, cache *statscache.Cache) {
	table := a.table()
	all := &report.AllTime
	all.Messages = cache.TotalMessages
	all.Sessions = cache.TotalSessions
	if len(cache.FirstSessionDate) >= len(models.DateLayout) {
		all.FirstSessionDate = cache.FirstSessionDate[:len(models.DateLayout)]
	}

	var total models.TokenCounts
	breakdown := make([]models.ModelBreakdown, 0, len(cache.ModelUsage))
	for model, mu := range cache.ModelUsage {
		tokens := mu.Tokens()
		cost := table.Cost(model, tokens)
		total = total.Add(tokens)
		all.Cost += cost
		breakdown = append(breakdown, models.ModelBreakdown{Model: model, TokenCounts: tokens, Cost: cost})
	}

	all.InputTokens = total.InputTokens
	all.OutputTokens = total.OutputTokens
	all.CacheReadTokens = total.CacheReadTokens
	all.CacheWriteTokens = total.CacheWriteTokens
	all.Tokens = total.Total()

	for i := range breakdown {
		if all.Cost > 0 {
			breakdown[i].Percent = breakdown[i].Cost / all.Cost * 100
		}
	}
	slices.SortFunc(breakdown, func(x, y models.ModelBreakdown) int {
		switch {
		case x.Cost > y.Cost:
			return -1
		case x.Cost < y.Cost:
			return 1
		default:
			return strings.Compare(x.Model, y.Model)
		}
	})
	report.Models = breakdown
}

// cacheDays builds one entry per date known to the cache. Cost is exact when
// the store has a per-model breakdown for the date and blended otherwise.
func (a *Aggregator) cacheDays(cache *statscache.Cache, byDate map[string][]models.ModelUsageRecord) map[string]*models.DailyEntry {
	table := a.table()
	days := make(map[string]*models.DailyEntry)
	entry := func(date string) *models.DailyEntry {
		e, ok := days[date]
		if !ok {
			e = &models.DailyEntry{Date: date}
			days[date] = e
		}
		return e
	}

	for _, d := range cache.DailyActivity {
		if d.Date == "" {
			continue
		}
		e := entry(d.Date)
		e.Messages += max(d.MessageCount, 0)
		e.Sessions += max(d.SessionCount, 0)
	}

	for _, d := range cache.DailyModelTokens {
		if d.Date == "" {
			continue
		}
		e := entry(d.Date)
		for _, n := range d.TokensByModel {
			e.Tokens += max(n, 0)
		}

		if rows := byDate[d.Date]; len(rows) > 0 {
			e.Cost = lo.SumBy(rows, func(r models.ModelUsageRecord) float64 {
				return table.Cost(r.Model, r.TokenCounts)
			})
			continue
		}
		for model, n := range d.TokensByModel {
			e.Cost += table.BlendedCost(model, max(n, 0))
		}
		e.Estimated = e.Cost > 0
	}

	for date, e := range days {
		if e.Cost == 0 {
			if rows := byDate[date]; len(rows) > 0 {
				e.Cost = lo.SumBy(rows, func(r models.ModelUsageRecord) float64 {
					return table.Cost(r.Model, r.TokenCounts)
				})
			}
		}
	}
	return days
}

// fillHistoryTotals derives notable days across the merged history. When the
// cache carried no lifetime data the history sums stand in for it.
func (a *Aggregator) fillHistoryTotals(report *models.UsageReport, cache *statscache.Cache) {
	all := &report.AllTime
	for _, e := range report.DailyHistory {
		if e.Messages > 0 {
			all.DaysActive++
		}
		if e.Messages > all.PeakDay.Messages {
			all.PeakDay = models.DayRecord{Date: e.Date, Messages: e.Messages, Cost: e.Cost}
		}
		if e.Cost > all.HighestCostDay.Cost {
			all.HighestCostDay = models.DayRecord{Date: e.Date, Messages: e.Messages, Cost: e.Cost}
		}
	}

	if len(cache.ModelUsage) == 0 {
		all.Cost = lo.SumBy(report.DailyHistory, func(e models.DailyEntry) float64 { return e.Cost })
		all.Tokens = lo.SumBy(report.DailyHistory, func(e models.DailyEntry) int64 { return e.Tokens })
	}
	if all.Messages == 0 {
		all.Messages = lo.SumBy(report.DailyHistory, func(e models.DailyEntry) int64 { return e.Messages })
	}
	if all.Sessions == 0 {
		all.Sessions = lo.SumBy(report.DailyHistory, func(e models.DailyEntry) int64 { return e.Sessions })
	}
	if all.FirstSessionDate == "" && len(report.DailyHistory) > 0 {
		all.FirstSessionDate = report.DailyHistory[0].Date
	}
}

// periodStats rolls up the trailing n calendar days ending at now.
// Averages are taken over all n days, active or not.
func periodStats(history []models.DailyEntry, now time.Time, n int) models.PeriodStats {
	from := now.AddDate(0, 0, -(n - 1)).Format(models.DateLayout)
	to := now.Format(models.DateLayout)

	var p models.PeriodStats
	for _, e := range history {
		if e.Date < from || e.Date > to {
			continue
		}
		p.Cost += e.Cost
		p.Messages += e.Messages
		p.Tokens += e.Tokens
		p.Sessions += e.Sessions
		if e.Messages > 0 {
			p.ActiveDays++
		}
	}
	p.AvgDailyCost = p.Cost / float64(n)
	p.AvgDailyMessages = float64(p.Messages) / float64(n)
	p.AvgDailyTokens = float64(p.Tokens) / float64(n)
	return p
}

// writeBack persists computed days so that history survives the cache's
// rolling window. Failures are logged; the report is still returned.
func (a *Aggregator) writeBack(days map[string]*models.DailyEntry, computed []string, live *models.LiveStats) {
	store := a.store()
	if !store.Available() {
		return
	}

	slices.Sort(computed)
	snapshots := lo.FilterMap(computed, func(date string, _ int) (models.DailySnapshot, bool) {
		e, ok := days[date]
		if !ok {
			return models.DailySnapshot{}, false
		}
		return models.DailySnapshot{
			Date:     e.Date,
			Cost:     e.Cost,
			Messages: e.Messages,
			Tokens:   e.Tokens,
			Sessions: e.Sessions,
		}, true
	})
	if err := store.UpsertDailySnapshots(snapshots); err != nil {
		logger.Warn("failed to persist daily snapshots", "error", err)
		return
	}

	if live != nil && live.Date != "" {
		for _, model := range slices.Sorted(maps.Keys(live.Models)) {
			rec := models.ModelUsageRecord{Date: live.Date, Model: model, TokenCounts: live.Models[model]}
			if err := store.UpsertModelUsage(rec); err != nil {
				logger.Warn("failed to persist model usage", "date", live.Date, "model", model, "error", err)
			}
		}
	}

	if err := store.Save(); err != nil {
		logger.Warn("failed to save historical store", "error", err)
	}
}
