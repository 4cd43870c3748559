package backfill

import (
	"math"

	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
)

// Share of estimated input tokens assumed to be cache reads and cache writes.
const (
	cacheReadShare  = 0.6
	cacheWriteShare = 0.1
)

// CalculateCosts prices every day at sonnet rates, splitting input tokens
// into plain input, cache reads and cache writes.
func CalculateCosts(days []*DayStats, table *pricing.Table) {
	if table == nil {
		table = pricing.Default()
	}
	rates := table.Lookup("sonnet")

	for _, d := range days {
		d.CacheReadTokens = int64(float64(d.InputTokens) * cacheReadShare)
		d.CacheWriteTokens = int64(float64(d.InputTokens) * cacheWriteShare)
		regular := d.InputTokens - d.CacheReadTokens - d.CacheWriteTokens

		cost := float64(regular)/1e6*rates.Input +
			float64(d.OutputTokens)/1e6*rates.Output +
			float64(d.CacheReadTokens)/1e6*rates.CacheRead +
			float64(d.CacheWriteTokens)/1e6*rates.CacheWrite
		d.Cost = math.Round(cost*10000) / 10000
	}
}
