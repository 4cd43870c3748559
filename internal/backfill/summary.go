package backfill

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Totals aggregates every imported day.
type Totals struct {
	TotalMessages          int64          `json:"total_messages"`
	TotalHumanMessages     int64          `json:"total_human_messages"`
	TotalAssistantMessages int64          `json:"total_assistant_messages"`
	TotalInputTokens       int64          `json:"total_input_tokens"`
	TotalOutputTokens      int64          `json:"total_output_tokens"`
	TotalCost              float64        `json:"total_cost"`
	TotalSessions          int64          `json:"total_sessions"`
	ThinkingHours          float64        `json:"total_thinking_time_hours"`
	UserActiveHours        float64        `json:"total_user_active_hours"`
	DaysActive             int            `json:"days_active"`
	TotalCurseWords        int            `json:"total_curse_words"`
	TotalQuestions         int            `json:"total_questions"`
	TotalExclamations      int            `json:"total_exclamations"`
	TotalPleaseCount       int            `json:"total_please_count"`
	TotalThanksCount       int            `json:"total_thanks_count"`
	TotalCapsRage          int            `json:"total_caps_rage"`
	TotalLolCount          int            `json:"total_lol_count"`
	TotalWordCount         int            `json:"total_word_count"`
	HourlyActivity         map[string]int `json:"hourly_activity"`
	PolitenessScore        int            `json:"politeness_score"`
	PeakHour               string         `json:"peak_hour,omitempty"`
	NightOwlScore          int            `json:"night_owl_score"`
	EarlyBirdScore         int            `json:"early_bird_score"`
}

// DayBreakdown is the per-day entry of the summary.
type DayBreakdown struct {
	Date                string  `json:"date"`
	Messages            int64   `json:"messages"`
	HumanMessages       int64   `json:"human_messages"`
	AssistantMessages   int64   `json:"assistant_messages"`
	Tokens              int64   `json:"tokens"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	Cost                float64 `json:"cost"`
	Sessions            int64   `json:"sessions"`
	ThinkingTimeMinutes float64 `json:"thinking_time_minutes"`
	UserActiveMinutes   float64 `json:"user_active_minutes"`
}

// Summary is the JSON document written next to the export.
type Summary struct {
	ExportDate     time.Time               `json:"export_date"`
	Source         string                  `json:"source"`
	Totals         Totals                  `json:"totals"`
	DailyBreakdown map[string]DayBreakdown `json:"daily_breakdown"`
}

// Summarize rolls days up into a summary.
func Summarize(days []*DayStats, now time.Time) *Summary {
	var t Totals
	var hours [24]int
	breakdown := make(map[string]DayBreakdown, len(days))

	for _, d := range days {
		t.TotalMessages += d.Messages
		t.TotalHumanMessages += d.HumanMessages
		t.TotalAssistantMessages += d.AssistantMessages
		t.TotalInputTokens += d.InputTokens
		t.TotalOutputTokens += d.OutputTokens
		t.TotalCost += d.Cost
		t.TotalSessions += d.Sessions
		t.ThinkingHours += d.ThinkingTime.Hours()
		t.UserActiveHours += d.UserActiveTime.Hours()
		t.TotalCurseWords += d.CurseWords
		t.TotalQuestions += d.Questions
		t.TotalExclamations += d.Exclamations
		t.TotalPleaseCount += d.PleaseCount
		t.TotalThanksCount += d.ThanksCount
		t.TotalCapsRage += d.CapsRage
		t.TotalLolCount += d.LolCount
		t.TotalWordCount += d.WordCount
		for h, n := range d.Hours {
			hours[h] += n
		}

		breakdown[d.Date] = DayBreakdown{
			Date:                d.Date,
			Messages:            d.Messages,
			HumanMessages:       d.HumanMessages,
			AssistantMessages:   d.AssistantMessages,
			Tokens:              d.Tokens(),
			InputTokens:         d.InputTokens,
			OutputTokens:        d.OutputTokens,
			Cost:                d.Cost,
			Sessions:            d.Sessions,
			ThinkingTimeMinutes: round2(d.ThinkingTime.Minutes()),
			UserActiveMinutes:   round2(d.UserActiveTime.Minutes()),
		}
	}
	t.DaysActive = len(days)

	t.PolitenessScore = min(100, int(float64(t.TotalPleaseCount+t.TotalThanksCount)/
		float64(max(t.TotalHumanMessages, 1))*100))

	t.HourlyActivity = make(map[string]int)
	total, peak := 0, -1
	for h, n := range hours {
		if n == 0 {
			continue
		}
		t.HourlyActivity[fmt.Sprint(h)] = n
		total += n
		if peak < 0 || n > hours[peak] {
			peak = h
		}
	}
	if peak >= 0 {
		t.PeakHour = fmt.Sprintf("%02d:00", peak)
	}

	// Night runs 22:00-05:59 and early 05:00-08:59; hour 5 counts for both.
	var night, early int
	for h, n := range hours {
		if h >= 22 || h <= 5 {
			night += n
		}
		if h >= 5 && h <= 8 {
			early += n
		}
	}
	total = max(total, 1)
	t.NightOwlScore = int(math.Round(float64(night) / float64(total) * 100))
	t.EarlyBirdScore = int(math.Round(float64(early) / float64(total) * 100))

	return &Summary{
		ExportDate:     now,
		Source:         "claude.ai data export",
		Totals:         t,
		DailyBreakdown: breakdown,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WriteSummary writes s as indented JSON to path.
func WriteSummary(s *Summary, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// Print writes a human-readable summary.
func Print(w io.Writer, t Totals) {
	rule := strings.Repeat("=", 60)
	line := strings.Repeat("-", 60)
	row := func(label, value string) {
		fmt.Fprintf(w, "  %-24s %s\n", label+":", value)
	}
	peak := t.PeakHour
	if peak == "" {
		peak = "N/A"
	}

	fmt.Fprintf(w, "\n%s\nBACKFILL SUMMARY\n%s\n", rule, rule)

	fmt.Fprintf(w, "\nUSAGE STATISTICS\n%s\n", line)
	row("Days with activity", humanize.Comma(int64(t.DaysActive)))
	row("Total conversations", humanize.Comma(t.TotalSessions))
	row("Total messages", humanize.Comma(t.TotalMessages))
	row("  Human messages", humanize.Comma(t.TotalHumanMessages))
	row("  Assistant messages", humanize.Comma(t.TotalAssistantMessages))
	row("Estimated tokens", humanize.Comma(t.TotalInputTokens+t.TotalOutputTokens))
	row("Estimated cost", "$"+humanize.CommafWithDigits(t.TotalCost, 2))

	fmt.Fprintf(w, "\nTIME ANALYTICS\n%s\n", line)
	row("Claude thinking time", fmt.Sprintf("%.1f hours", t.ThinkingHours))
	row("User active time", fmt.Sprintf("%.1f hours", t.UserActiveHours))
	row("Peak activity hour", peak)
	row("Night owl score", fmt.Sprintf("%d%%", t.NightOwlScore))
	row("Early bird score", fmt.Sprintf("%d%%", t.EarlyBirdScore))

	fmt.Fprintf(w, "\nPERSONALITY METRICS\n%s\n", line)
	row("Politeness score", fmt.Sprintf("%d%%", t.PolitenessScore))
	row("Questions asked", humanize.Comma(int64(t.TotalQuestions)))
	row("Exclamations", humanize.Comma(int64(t.TotalExclamations)))
	row("CAPS RAGE messages", humanize.Comma(int64(t.TotalCapsRage)))
	row("LOL count", humanize.Comma(int64(t.TotalLolCount)))
	row("Total words", humanize.Comma(int64(t.TotalWordCount)))
	fmt.Fprintln(w, rule)
}
