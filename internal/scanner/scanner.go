// Package scanner walks Claude Code conversation logs and derives
// conversation statistics from user-authored text.
package scanner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
)

// DefaultTTL is how long a cached scan result stays fresh.
const DefaultTTL = time.Hour

const maxLineSize = 10 * 1024 * 1024

// Scanner computes ConversationStats over a tree of JSONL logs.
type Scanner struct {
	// Root is the projects directory holding the logs.
	Root string
	// CachePath is where scan results are persisted. Empty disables caching.
	CachePath string
	TTL       time.Duration
	Pricing   *pricing.Table
	Clock     func() time.Time
}

// New creates a scanner with the default TTL and pricing table.
func New(root, cachePath string) *Scanner {
	return &Scanner{
		Root:      root,
		CachePath: cachePath,
		TTL:       DefaultTTL,
		Pricing:   pricing.Default(),
		Clock:     time.Now,
	}
}

func (s *Scanner) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

// Scan returns conversation stats, served from the disk cache when it is
// younger than TTL. force skips the cache. A missing root yields StatusEmpty.
func (s *Scanner) Scan(force bool) models.Result[*models.ConversationStats] {
	if !force {
		if cached, ok := s.loadCache(); ok {
			return models.OK(cached)
		}
	}

	if _, err := os.Stat(s.Root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("conversation log directory missing", "path", s.Root)
			return models.Empty(models.NewConversationStats())
		}
		return models.Degraded(models.NewConversationStats(), fmt.Errorf("stat log directory: %w", err))
	}

	stats := models.NewConversationStats()
	s.walk(func(path string, _ fs.FileInfo) {
		stats.FilesScanned++
		stats.LinesSkipped += scanFile(path, func(r *record) {
			if !r.userAuthored() {
				return
			}
			text := strings.TrimSpace(r.text())
			if text == "" {
				return
			}
			classify(stats, text)
			if !r.timestamp.IsZero() {
				stats.HourCounts[r.timestamp.Local().Hour()]++
			}
		})
	})
	stats.ScannedAt = s.now()

	s.saveCache(stats)
	return models.OK(stats)
}

// walk calls fn for every *.jsonl file under Root. Unreadable entries are skipped.
func (s *Scanner) walk(fn func(path string, info fs.FileInfo)) {
	_ = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != s.Root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(path, info)
		return nil
	})
}

// scanFile decodes each line of path and passes it to fn. It returns the
// number of malformed lines.
func scanFile(path string, fn func(*record)) int {
	f, err := os.Open(path)
	if err != nil {
		logger.Debug("skipping unreadable log", "path", path, "error", err)
		return 0
	}
	defer func() { _ = f.Close() }()

	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		r, ok := decodeRecord(line)
		if !ok {
			skipped++
			continue
		}
		fn(r)
	}
	if err := sc.Err(); err != nil {
		logger.Debug("stopped reading log", "path", path, "error", err)
	}
	return skipped
}

func (s *Scanner) loadCache() (*models.ConversationStats, bool) {
	if s.CachePath == "" {
		return nil, false
	}
	data, err := os.ReadFile(s.CachePath)
	if err != nil {
		return nil, false
	}

	stats := models.NewConversationStats()
	if err := json.Unmarshal(data, stats); err != nil {
		logger.Debug("ignoring unreadable conversation cache", "path", s.CachePath, "error", err)
		return nil, false
	}
	if stats.CodeBlocksByLanguage == nil {
		stats.CodeBlocksByLanguage = make(map[string]int)
	}

	age := s.now().Sub(stats.ScannedAt)
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if age < 0 || age >= ttl {
		return nil, false
	}
	return stats, true
}

func (s *Scanner) saveCache(stats *models.ConversationStats) {
	if s.CachePath == "" {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		logger.Warn("failed to encode conversation cache", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.CachePath), 0o750); err != nil {
		logger.Warn("failed to create cache directory", "path", s.CachePath, "error", err)
		return
	}
	tmp := s.CachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		logger.Warn("failed to write conversation cache", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.CachePath); err != nil {
		logger.Warn("failed to replace conversation cache", "path", s.CachePath, "error", err)
	}
}
