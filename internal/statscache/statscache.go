// Package statscache reads the usage statistics cache maintained by the
// Claude Code CLI.
package statscache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// ErrNotFound is returned when the cache file does not exist.
var ErrNotFound = errors.New("stats cache not found")

// Cache is the decoded stats-cache.json document.
type Cache struct {
	Version          int                   `json:"version"`
	TotalMessages    int64                 `json:"totalMessages"`
	TotalSessions    int64                 `json:"totalSessions"`
	FirstSessionDate string                `json:"firstSessionDate"`
	LastComputedDate string                `json:"lastComputedDate"`
	ModelUsage       map[string]ModelUsage `json:"modelUsage"`
	DailyActivity    []DailyActivity       `json:"dailyActivity"`
	DailyModelTokens []DailyModelTokens    `json:"dailyModelTokens"`
	HourCounts       map[string]int        `json:"hourCounts"`
	LongestSession   *LongestSession       `json:"longestSession"`
}

// ModelUsage is lifetime token usage for one model.
type ModelUsage struct {
	InputTokens              int64 `json:"inputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens"`
}

// Tokens converts the cache field names to TokenCounts.
func (m ModelUsage) Tokens() models.TokenCounts {
	return models.TokenCounts{
		InputTokens:      m.InputTokens,
		OutputTokens:     m.OutputTokens,
		CacheReadTokens:  m.CacheReadInputTokens,
		CacheWriteTokens: m.CacheCreationInputTokens,
	}.Clamp()
}

// DailyActivity is one day of message and session counts.
type DailyActivity struct {
	Date         string `json:"date"`
	MessageCount int64  `json:"messageCount"`
	SessionCount int64  `json:"sessionCount"`
}

// DailyModelTokens is one day of aggregate token counts per model.
type DailyModelTokens struct {
	Date          string           `json:"date"`
	TokensByModel map[string]int64 `json:"tokensByModel"`
}

// LongestSession describes the session with the most messages.
type LongestSession struct {
	MessageCount int64 `json:"messageCount"`
}

// Load reads and decodes the cache at path. A missing file yields ErrNotFound.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading stats cache: %w", err)
	}
	return Parse(data)
}

// Parse decodes a cache document.
func Parse(data []byte) (*Cache, error) {
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing stats cache: %w", err)
	}
	return &c, nil
}

// Hours returns the hour-of-day histogram as an array. Keys outside 0-23
// or that are not integers are ignored.
func (c *Cache) Hours() [24]int {
	var hours [24]int
	for key, count := range c.HourCounts {
		h, err := strconv.Atoi(key)
		if err != nil || h < 0 || h > 23 {
			continue
		}
		hours[h] += max(count, 0)
	}
	return hours
}

// TokensByDate returns the daily model token map keyed by date.
func (c *Cache) TokensByDate() map[string]map[string]int64 {
	return lo.SliceToMap(c.DailyModelTokens, func(d DailyModelTokens) (string, map[string]int64) {
		return d.Date, d.TokensByModel
	})
}

// LongestSessionMessages returns the message count of the longest session.
func (c *Cache) LongestSessionMessages() int64 {
	if c.LongestSession == nil {
		return 0
	}
	return c.LongestSession.MessageCount
}
