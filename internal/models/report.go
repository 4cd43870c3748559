package models

import "time"

// Trend classifies the week-over-week cost direction.
type Trend string

const (
	// TrendUp means the last 7 days cost more than 10% above the prior 7.
	TrendUp Trend = "up"
	// TrendDown means the last 7 days cost more than 10% below the prior 7.
	TrendDown Trend = "down"
	// TrendStable covers everything in between.
	TrendStable Trend = "stable"
)

// UsageReport is the full computed view model. It is derived on every
// request and never persisted.
type UsageReport struct {
	GeneratedAt  time.Time          `json:"generatedAt"`
	AllTime      AllTimeStats       `json:"allTime"`
	Last14Days   PeriodStats        `json:"last14Days"`
	Today        DailyEntry         `json:"today"`
	DailyHistory []DailyEntry       `json:"dailyHistory"`
	Models       []ModelBreakdown   `json:"models"`
	FunStats     FunStats           `json:"funStats"`
	Achievements []Achievement      `json:"achievements"`
	Conversation *ConversationStats `json:"conversation,omitempty"`
	LiveApplied  bool               `json:"liveApplied"`
}

// AllTimeStats holds lifetime totals.
type AllTimeStats struct {
	Cost             float64   `json:"cost"`
	Messages         int64     `json:"messages"`
	Sessions         int64     `json:"sessions"`
	Tokens           int64     `json:"tokens"`
	InputTokens      int64     `json:"inputTokens"`
	OutputTokens     int64     `json:"outputTokens"`
	CacheReadTokens  int64     `json:"cacheReadTokens"`
	CacheWriteTokens int64     `json:"cacheWriteTokens"`
	FirstSessionDate string    `json:"firstSessionDate,omitempty"`
	DaysActive       int       `json:"daysActive"`
	PeakDay          DayRecord `json:"peakDay"`
	HighestCostDay   DayRecord `json:"highestCostDay"`
}

// DayRecord points at a notable day.
type DayRecord struct {
	Date     string  `json:"date"`
	Messages int64   `json:"messages"`
	Cost     float64 `json:"cost"`
}

// PeriodStats rolls up a trailing window of days.
type PeriodStats struct {
	Cost             float64 `json:"cost"`
	Messages         int64   `json:"messages"`
	Tokens           int64   `json:"tokens"`
	Sessions         int64   `json:"sessions"`
	ActiveDays       int     `json:"activeDays"`
	AvgDailyCost     float64 `json:"avgDailyCost"`
	AvgDailyMessages float64 `json:"avgDailyMessages"`
	AvgDailyTokens   float64 `json:"avgDailyTokens"`
}

// DailyEntry is one day in the report history.
type DailyEntry struct {
	Date     string  `json:"date"`
	Messages int64   `json:"messages"`
	Sessions int64   `json:"sessions"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
	// Estimated is true when Cost came from the blended rate.
	Estimated bool `json:"estimated"`
}

// ModelBreakdown is lifetime usage for one model.
type ModelBreakdown struct {
	Model string `json:"model"`
	TokenCounts
	Cost    float64 `json:"cost"`
	Percent float64 `json:"percent"`
}

// FunStats are behavioral metrics derived from usage and conversation text.
type FunStats struct {
	Streak                 int     `json:"streak"`
	WeekendPercent         float64 `json:"weekendPercent"`
	PeakHour               string  `json:"peakHour"`
	NightOwlScore          int     `json:"nightOwlScore"`
	EarlyBirdScore         int     `json:"earlyBirdScore"`
	Trend                  Trend   `json:"trend"`
	TrendPercent           float64 `json:"trendPercent"`
	CacheHitRatio          float64 `json:"cacheHitRatio"`
	CacheSavings           float64 `json:"cacheSavings"`
	PolitenessScore        int     `json:"politenessScore"`
	FrustrationIndex       int     `json:"frustrationIndex"`
	AvgSessionMessages     float64 `json:"avgSessionMessages"`
	LongestSessionMessages int64   `json:"longestSessionMessages"`
	HourCounts             [24]int `json:"hourCounts"`
}

// Achievement is one rule-based badge.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// DefaultReport returns the all-zero report used when aggregation fails.
func DefaultReport() *UsageReport {
	return &UsageReport{
		GeneratedAt:  time.Now(),
		DailyHistory: []DailyEntry{},
		Models:       []ModelBreakdown{},
		Achievements: []Achievement{},
		FunStats: FunStats{
			PeakHour: "N/A",
			Trend:    TrendStable,
		},
	}
}

// UnlockedIDs returns the ids of unlocked achievements in list order.
func (r *UsageReport) UnlockedIDs() []string {
	var ids []string
	for _, a := range r.Achievements {
		if a.Unlocked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
