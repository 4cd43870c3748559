package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestScanner(t *testing.T, now time.Time) *Scanner {
	t.Helper()
	root := t.TempDir()
	s := New(filepath.Join(root, "projects"), filepath.Join(root, "cache.json"))
	s.Clock = func() time.Time { return now }
	return s
}

func TestScan_PayloadShapes(t *testing.T) {
	s := newTestScanner(t, time.Now())
	writeLog(t, s.Root, "proj/a.jsonl",
		`{"type":"user","message":"please fix this bug?"}`,
		`{"type":"user","message":{"role":"user","content":"thanks, that is great!"}}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"text","text":"explain this"},{"type":"image"}]}}`,
		`{"type":"user","content":"sorry, why is this so confusing"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","content":"ok"}]}}`,
		`{"type":"user","isMeta":true,"message":{"role":"user","content":"meta text"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"damn"}]}}`,
		`{"type":"summary","summary":"nothing"}`,
		`not json at all`,
	)

	res := s.Scan(true)
	if res.Status != models.StatusOK {
		t.Fatalf("Status = %v, err = %v", res.Status, res.Err)
	}
	stats := res.Value

	if stats.UserMessages != 4 {
		t.Errorf("UserMessages = %d, want 4", stats.UserMessages)
	}
	if stats.LinesSkipped != 1 {
		t.Errorf("LinesSkipped = %d, want 1", stats.LinesSkipped)
	}
	if stats.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", stats.FilesScanned)
	}
	if stats.CurseWords != 0 {
		t.Errorf("assistant text should not be classified, CurseWords = %d", stats.CurseWords)
	}
	if stats.PleaseCount != 1 || stats.ThanksCount != 1 || stats.SorryCount != 1 {
		t.Errorf("please/thanks/sorry = %d/%d/%d", stats.PleaseCount, stats.ThanksCount, stats.SorryCount)
	}
	if stats.Questions != 1 || stats.Exclamations != 1 {
		t.Errorf("questions/exclamations = %d/%d", stats.Questions, stats.Exclamations)
	}
	if stats.Requests.BugFix != 1 || stats.Requests.Explain != 1 {
		t.Errorf("Requests = %+v", stats.Requests)
	}
	if stats.Sentiment.Positive != 1 || stats.Sentiment.Confused != 1 {
		t.Errorf("Sentiment = %+v", stats.Sentiment)
	}
}

func TestClassify_Counters(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(*models.ConversationStats) bool
	}{
		{"curse words counted per word", "damn this shit, damn", func(s *models.ConversationStats) bool { return s.CurseWords == 3 }},
		{"wtf is both curse and frustration", "wtf", func(s *models.ConversationStats) bool {
			return s.CurseWords == 1 && s.FrustrationWords == 1
		}},
		{"caps rage", "WHY IS THIS BROKEN AGAIN", func(s *models.ConversationStats) bool { return s.CapsRage == 1 }},
		{"short caps ignored", "OK FINE", func(s *models.ConversationStats) bool { return s.CapsRage == 0 }},
		{"lol", "lol haha that is funny lmao", func(s *models.ConversationStats) bool { return s.LolCount == 3 }},
		{"polite phrase", "Could you look at this", func(s *models.ConversationStats) bool { return s.PolitePhrases == 1 }},
		{"overlapping buckets", "urgent: fix the tests asap", func(s *models.ConversationStats) bool {
			return s.Sentiment.Urgent == 1 && s.Requests.BugFix == 1 && s.Requests.Test == 1
		}},
		{"words", "one two  three", func(s *models.ConversationStats) bool {
			return s.TotalWords == 3 && s.LongestMessageWords == 3
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := models.NewConversationStats()
			classify(stats, tt.text)
			if !tt.check(stats) {
				t.Errorf("classify(%q) = %+v", tt.text, stats)
			}
		})
	}
}

func TestClassify_CodeBlocks(t *testing.T) {
	stats := models.NewConversationStats()
	text := "look:\n```go\nfunc main() {\n}\n```\nand\n```\nplain\n```"

	classify(stats, text)

	if stats.CodeBlocks != 2 {
		t.Errorf("CodeBlocks = %d, want 2", stats.CodeBlocks)
	}
	if stats.CodeBlocksByLanguage["go"] != 1 || stats.CodeBlocksByLanguage["text"] != 1 {
		t.Errorf("CodeBlocksByLanguage = %v", stats.CodeBlocksByLanguage)
	}
	if stats.LinesOfCode != 3 {
		t.Errorf("LinesOfCode = %d, want 3", stats.LinesOfCode)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	s := newTestScanner(t, time.Now())

	res := s.Scan(false)
	if res.Status != models.StatusEmpty {
		t.Errorf("Status = %v, want empty", res.Status)
	}
	if res.Value == nil || res.Value.UserMessages != 0 {
		t.Errorf("Value = %+v", res.Value)
	}
}

func TestScan_CacheLifetime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestScanner(t, now)
	writeLog(t, s.Root, "a.jsonl", `{"type":"user","message":"hello"}`)

	if got := s.Scan(false).Value.UserMessages; got != 1 {
		t.Fatalf("first scan UserMessages = %d", got)
	}

	writeLog(t, s.Root, "b.jsonl", `{"type":"user","message":"again"}`)

	s.Clock = func() time.Time { return now.Add(30 * time.Minute) }
	if got := s.Scan(false).Value.UserMessages; got != 1 {
		t.Errorf("fresh cache should be served, UserMessages = %d", got)
	}

	if got := s.Scan(true).Value.UserMessages; got != 2 {
		t.Errorf("forced scan UserMessages = %d, want 2", got)
	}

	s.Clock = func() time.Time { return now.Add(3 * time.Hour) }
	writeLog(t, s.Root, "c.jsonl", `{"type":"user","message":"third"}`)
	if got := s.Scan(false).Value.UserMessages; got != 3 {
		t.Errorf("expired cache should rescan, UserMessages = %d", got)
	}
}

func TestScan_HourCounts(t *testing.T) {
	s := newTestScanner(t, time.Now())
	ts := time.Date(2024, 6, 1, 22, 15, 0, 0, time.Local).Format(time.RFC3339)
	writeLog(t, s.Root, "a.jsonl", `{"type":"user","timestamp":"`+ts+`","message":"late night"}`)

	stats := s.Scan(true).Value
	if stats.HourCounts[22] != 1 {
		t.Errorf("HourCounts[22] = %d", stats.HourCounts[22])
	}
}

func TestScanLive(t *testing.T) {
	s := newTestScanner(t, time.Now())
	day := time.Now()
	date := day.Format(models.DateLayout)
	ts := time.Date(day.Year(), day.Month(), day.Day(), 0, 30, 0, 0, time.Local).Format(time.RFC3339)
	old := day.AddDate(0, 0, -2).Format(time.RFC3339)

	writeLog(t, s.Root, "a.jsonl",
		`{"type":"user","timestamp":"`+ts+`","message":"hi"}`,
		`{"type":"assistant","timestamp":"`+ts+`","message":{"id":"m1","model":"claude-opus-4","usage":{"input_tokens":10,"output_tokens":1}}}`,
		`{"type":"assistant","timestamp":"`+ts+`","message":{"id":"m1","model":"claude-opus-4","usage":{"input_tokens":1000000,"output_tokens":0}}}`,
		`{"type":"assistant","timestamp":"`+ts+`","message":{"id":"m2","model":"claude-sonnet-4","usage":{"input_tokens":0,"output_tokens":1000000}}}`,
		`{"type":"assistant","timestamp":"`+old+`","message":{"id":"m3","model":"claude-sonnet-4","usage":{"input_tokens":5}}}`,
	)

	res := s.ScanLive(date)
	if res.Status != models.StatusOK {
		t.Fatalf("Status = %v, err = %v", res.Status, res.Err)
	}
	live := res.Value

	if live.Messages != 3 {
		t.Errorf("Messages = %d, want 3", live.Messages)
	}
	if got := live.Models["claude-opus-4"].InputTokens; got != 1000000 {
		t.Errorf("duplicate message id should keep last usage, got %d", got)
	}
	if live.Tokens != 2000000 {
		t.Errorf("Tokens = %d", live.Tokens)
	}
	// 1M opus input at 15 + 1M sonnet output at 15
	if live.Cost < 29.999 || live.Cost > 30.001 {
		t.Errorf("Cost = %f, want 30", live.Cost)
	}
}

func TestScanLive_InvalidDate(t *testing.T) {
	s := newTestScanner(t, time.Now())
	if res := s.ScanLive("yesterday"); !res.IsDegraded() {
		t.Errorf("Status = %v, want degraded", res.Status)
	}
}
