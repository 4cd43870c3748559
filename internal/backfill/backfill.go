// Package backfill imports a claude.ai data export into the historical store.
package backfill

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// WebModel tags model usage rows imported from claude.ai.
const WebModel = "claude-web"

// charsPerToken is the conservative estimate used for exported text.
const charsPerToken = 4

// activeGap is the longest pause between human messages still counted as active time.
const activeGap = 30 * time.Minute

var (
	backfillCurseWords  = []string{"damn", "hell", "crap", "shit", "fuck", "ass", "bastard", "bitch"}
	backfillPoliteWords = []string{"please", "thank", "thanks", "appreciate", "grateful", "kindly"}
	backfillFrustration = []string{"frustrated", "annoying", "broken", "stupid", "hate", "ugh", "argh", "wtf"}
	wordRe              = regexp.MustCompile(`\b\w+\b`)
	lolRe               = regexp.MustCompile(`\blol\b`)
)

type conversation struct {
	CreatedAt    string        `json:"created_at"`
	ChatMessages []chatMessage `json:"chat_messages"`
}

type chatMessage struct {
	Sender    string          `json:"sender"`
	CreatedAt string          `json:"created_at"`
	Content   []exportContent `json:"content"`
}

type exportContent struct {
	Type           string          `json:"type"`
	Text           string          `json:"text"`
	Thinking       string          `json:"thinking"`
	StartTimestamp string          `json:"start_timestamp"`
	StopTimestamp  string          `json:"stop_timestamp"`
	Input          json.RawMessage `json:"input"`
	Content        json.RawMessage `json:"content"`
}

// DayStats is one day of activity reconstructed from the export.
type DayStats struct {
	Date              string
	Messages          int64
	HumanMessages     int64
	AssistantMessages int64
	InputTokens       int64
	OutputTokens      int64
	CacheReadTokens   int64
	CacheWriteTokens  int64
	Sessions          int64
	ThinkingTime      time.Duration
	UserActiveTime    time.Duration
	Cost              float64

	CurseWords       int
	PoliteWords      int
	FrustrationWords int
	Questions        int
	Exclamations     int
	PleaseCount      int
	ThanksCount      int
	CapsRage         int
	LolCount         int
	WordCount        int

	Hours [24]int
}

// Tokens returns the estimated input plus output tokens.
func (d *DayStats) Tokens() int64 {
	return d.InputTokens + d.OutputTokens
}

// Load reads <dir>/conversations.json and returns per-day stats in date order.
func Load(dir string) ([]*DayStats, error) {
	path := filepath.Join(dir, "conversations.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("conversations.json not found in %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	var convs []conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("parsing conversations.json: %w", err)
	}
	logger.Debug("loaded claude.ai export", "path", path, "conversations", len(convs))

	return process(convs), nil
}

// process attributes every message to the creation date of its conversation.
func process(convs []conversation) []*DayStats {
	days := make(map[string]*DayStats)

	for _, conv := range convs {
		if len(conv.CreatedAt) < len(models.DateLayout) {
			continue
		}
		date := conv.CreatedAt[:len(models.DateLayout)]
		d, ok := days[date]
		if !ok {
			d = &DayStats{Date: date}
			days[date] = d
		}
		d.Sessions++

		var prevHuman time.Time
		for _, msg := range conv.ChatMessages {
			if ts, ok := parseTimestamp(msg.CreatedAt); ok {
				d.Hours[ts.Hour()]++
				if msg.Sender == "human" {
					if !prevHuman.IsZero() {
						if gap := ts.Sub(prevHuman); gap > 0 && gap < activeGap {
							d.UserActiveTime += gap
						}
					}
					prevHuman = ts
				}
			}

			d.Messages++
			switch msg.Sender {
			case "human":
				d.HumanMessages++
			case "assistant":
				d.AssistantMessages++
			}

			for _, c := range msg.Content {
				addContent(d, msg.Sender, c)
			}
		}
	}

	out := lo.Values(days)
	slices.SortFunc(out, func(a, b *DayStats) int { return strings.Compare(a.Date, b.Date) })
	return out
}

func addContent(d *DayStats, sender string, c exportContent) {
	switch c.Type {
	case "text":
		tokens := estimateTokens(c.Text)
		if sender == "human" {
			d.InputTokens += tokens
			analyzeText(d, c.Text)
		} else {
			d.OutputTokens += tokens
		}
	case "thinking":
		d.OutputTokens += estimateTokens(c.Thinking)
		start, ok1 := parseTimestamp(c.StartTimestamp)
		stop, ok2 := parseTimestamp(c.StopTimestamp)
		if ok1 && ok2 {
			d.ThinkingTime += stop.Sub(start)
		}
	case "tool_use":
		d.OutputTokens += estimateTokens(string(c.Input))
	case "tool_result":
		var results []exportContent
		if json.Unmarshal(c.Content, &results) == nil {
			for _, r := range results {
				d.InputTokens += estimateTokens(r.Text)
			}
		}
	}
}

func analyzeText(d *DayStats, text string) {
	lower := strings.ToLower(text)
	words := wordRe.FindAllString(lower, -1)

	for _, w := range words {
		switch {
		case slices.Contains(backfillCurseWords, w):
			d.CurseWords++
		case slices.Contains(backfillPoliteWords, w):
			d.PoliteWords++
		}
		if slices.Contains(backfillFrustration, w) {
			d.FrustrationWords++
		}
	}

	d.Questions += strings.Count(text, "?")
	d.Exclamations += strings.Count(text, "!")
	d.PleaseCount += strings.Count(lower, "please")
	d.ThanksCount += strings.Count(lower, "thank")
	d.LolCount += len(lolRe.FindAllString(lower, -1))
	d.WordCount += len(words)

	runes := []rune(text)
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if upper*2 > max(len(runes), 1) {
		d.CapsRage++
	}
}

func estimateTokens(text string) int64 {
	return int64(len(text) / charsPerToken)
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
