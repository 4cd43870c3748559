package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
)

// ScanLive measures usage for one local calendar date directly from the
// logs. Assistant records are deduplicated by message id, keeping the last
// usage seen, because streamed responses are logged more than once.
func (s *Scanner) ScanLive(date string) models.Result[*models.LiveStats] {
	live := &models.LiveStats{Date: date, Models: make(map[string]models.TokenCounts)}

	day, err := time.ParseInLocation(models.DateLayout, date, time.Local)
	if err != nil {
		return models.Degraded(live, fmt.Errorf("invalid date %q: %w", date, err))
	}
	if _, err := os.Stat(s.Root); errors.Is(err, fs.ErrNotExist) {
		return models.Empty(live)
	}

	type turn struct {
		model  string
		tokens models.TokenCounts
	}
	turns := make(map[string]turn)
	var userMessages int64
	anon := 0

	s.walk(func(path string, info fs.FileInfo) {
		if info.ModTime().Before(day) {
			return
		}
		scanFile(path, func(r *record) {
			if r.timestamp.IsZero() || r.timestamp.Local().Format(models.DateLayout) != date {
				return
			}
			if r.userAuthored() {
				if strings.TrimSpace(r.text()) != "" {
					userMessages++
				}
				return
			}
			if r.kind != "assistant" || r.message == nil || r.message.Usage == nil {
				return
			}
			id := r.message.ID
			if id == "" {
				anon++
				id = "anon-" + strconv.Itoa(anon)
			}
			u := r.message.Usage
			turns[id] = turn{
				model: r.message.Model,
				tokens: models.TokenCounts{
					InputTokens:      u.InputTokens,
					OutputTokens:     u.OutputTokens,
					CacheReadTokens:  u.CacheReadInputTokens,
					CacheWriteTokens: u.CacheCreationInputTokens,
				}.Clamp(),
			}
		})
	})

	for _, t := range turns {
		model := t.model
		if model == "" || model == "<synthetic>" {
			continue
		}
		live.Models[model] = live.Models[model].Add(t.tokens)
		live.Messages++
	}
	live.Messages += userMessages

	table := s.Pricing
	if table == nil {
		table = pricing.Default()
	}
	for model, tokens := range live.Models {
		live.Tokens += tokens.Total()
		live.Cost += table.Cost(model, tokens)
	}

	logger.Debug("live scan complete", "date", date, "messages", live.Messages, "models", len(live.Models))
	if live.Messages == 0 {
		return models.Empty(live)
	}
	return models.OK(live)
}
