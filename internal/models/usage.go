// Package models defines data structures and domain types.
package models

// DateLayout is the calendar-day format used for every stored date.
// String comparison of two dates in this layout equals chronological comparison.
const DateLayout = "2006-01-02"

// TokenCounts holds the four token kinds billed by the API.
type TokenCounts struct {
	InputTokens      int64 `json:"inputTokens"`
	OutputTokens     int64 `json:"outputTokens"`
	CacheReadTokens  int64 `json:"cacheReadTokens"`
	CacheWriteTokens int64 `json:"cacheWriteTokens"`
}

// Total returns the sum of all token kinds.
func (t TokenCounts) Total() int64 {
	return t.InputTokens + t.OutputTokens + t.CacheReadTokens + t.CacheWriteTokens
}

// Add returns the element-wise sum of two token counts.
func (t TokenCounts) Add(o TokenCounts) TokenCounts {
	return TokenCounts{
		InputTokens:      t.InputTokens + o.InputTokens,
		OutputTokens:     t.OutputTokens + o.OutputTokens,
		CacheReadTokens:  t.CacheReadTokens + o.CacheReadTokens,
		CacheWriteTokens: t.CacheWriteTokens + o.CacheWriteTokens,
	}
}

// Clamp replaces negative counts with zero.
func (t TokenCounts) Clamp() TokenCounts {
	return TokenCounts{
		InputTokens:      max(t.InputTokens, 0),
		OutputTokens:     max(t.OutputTokens, 0),
		CacheReadTokens:  max(t.CacheReadTokens, 0),
		CacheWriteTokens: max(t.CacheWriteTokens, 0),
	}
}

// DailySnapshot is one calendar day of rolled-up usage.
type DailySnapshot struct {
	Date     string  `json:"date"`
	Cost     float64 `json:"cost"`
	Messages int64   `json:"messages"`
	Tokens   int64   `json:"tokens"`
	Sessions int64   `json:"sessions"`
}

// ModelUsageRecord is the per-model token breakdown for one day.
type ModelUsageRecord struct {
	Date  string `json:"date"`
	Model string `json:"model"`
	TokenCounts
}

// HistoryTotals aggregates every stored daily snapshot.
type HistoryTotals struct {
	Cost     float64
	Messages int64
	Tokens   int64
	Sessions int64
	Days     int
}

// LiveStats is a same-day measurement that overrides cached values for its date.
type LiveStats struct {
	Date     string                 `json:"date"`
	Cost     float64                `json:"cost"`
	Messages int64                  `json:"messages"`
	Tokens   int64                  `json:"tokens"`
	Models   map[string]TokenCounts `json:"models"`
}
