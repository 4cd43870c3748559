// Package services provides service orchestration for the TUI and CLI.
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/gen2brain/beeep"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/aggregator"
	"github.com/j-veylop/claude-usage-analytics/internal/config"
	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/scanner"
	"github.com/j-veylop/claude-usage-analytics/internal/syncmerge"
)

// achievementsKey is the metadata key holding the ids already announced.
const achievementsKey = "achievements_unlocked"

const debounceInterval = 500 * time.Millisecond

type (
	// ReportUpdatedEvent is emitted after every report build.
	ReportUpdatedEvent struct {
		Report *models.UsageReport
		Status models.Status
		Err    error
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// SourceChangedEvent is emitted when a watched input file changes.
	SourceChangedEvent struct {
		Path string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (ReportUpdatedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()         {}
func (SourceChangedEvent) isServiceEvent() {}

// Manager owns every component and their lifecycle.
type Manager struct {
	cfg        *config.Config
	handle     *db.Handle
	scanner    *scanner.Scanner
	aggregator *aggregator.Aggregator

	// Notify delivers desktop notifications.
	Notify func(title, message string) error
	Clock  func() time.Time

	mu          sync.RWMutex
	subscribers []chan<- ServiceEvent

	reportMu   sync.Mutex
	live       *models.LiveStats
	liveAt     time.Time
	last       *models.UsageReport
	unlocked   map[string]bool
	lastPruned string

	watcher       *fsnotify.Watcher
	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewManager creates a manager. The store is opened lazily on first use.
func NewManager(cfg *config.Config) *Manager {
	table := cfg.Pricing()

	sc := scanner.New(cfg.ProjectsDir, cfg.ConversationCachePath)
	sc.Pricing = table

	return &Manager{
		cfg:        cfg,
		handle:     db.NewHandle(cfg.DatabasePath),
		scanner:    sc,
		aggregator: aggregator.New(nil, table, cfg.StatsCachePath),
		Notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		Clock:    time.Now,
		stopChan: make(chan struct{}),
	}
}

func (m *Manager) now() time.Time {
	if m.Clock == nil {
		return time.Now()
	}
	return m.Clock()
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Store returns the historical store, or a no-op store when it cannot be opened.
func (m *Manager) Store() db.HistoryStore {
	return m.handle.Store()
}

// Database returns the opened store for operations outside HistoryStore.
func (m *Manager) Database() (*db.DB, error) {
	return m.handle.Get()
}

// Scanner returns the conversation scanner.
func (m *Manager) Scanner() *scanner.Scanner {
	return m.scanner
}

// Merger returns a sync merger bound to the store.
func (m *Manager) Merger() *syncmerge.Merger {
	merger := syncmerge.New(m.Store())
	merger.Clock = m.now
	return merger
}

// Report scans, aggregates and announces newly unlocked achievements.
// force bypasses the conversation cache and the live stats cache.
func (m *Manager) Report(force bool) models.Result[*models.UsageReport] {
	m.reportMu.Lock()
	defer m.reportMu.Unlock()

	conv := m.scanner.Scan(force)
	if conv.IsDegraded() {
		logger.Warn("conversation scan degraded", "error", conv.Err)
	}

	store := m.Store()
	m.pruneRetention(store)

	m.aggregator.Store = store
	m.aggregator.Clock = m.now
	res := m.aggregator.Build(m.liveStats(force), conv.Value)
	if res.Status != models.StatusDegraded {
		res.Value.Conversation = conv.Value
	}

	m.last = res.Value
	m.checkAchievements(store, res.Value)
	return res
}

// LastReport returns the most recent report, or nil before the first build.
func (m *Manager) LastReport() *models.UsageReport {
	m.reportMu.Lock()
	defer m.reportMu.Unlock()
	return m.last
}

// Refresh builds a report and broadcasts the outcome.
func (m *Manager) Refresh(force bool) models.Result[*models.UsageReport] {
	res := m.Report(force)
	m.broadcast(ReportUpdatedEvent{Report: res.Value, Status: res.Status, Err: res.Err})
	if res.IsDegraded() {
		m.broadcast(ErrorEvent{Service: "aggregator", Error: res.Err})
	}
	return res
}

// liveStats returns today's live stats, rescanning when the cached value is
// older than the refresh interval or belongs to another day. Must be called
// with reportMu held.
func (m *Manager) liveStats(force bool) *models.LiveStats {
	now := m.now()
	today := now.Format(models.DateLayout)

	if !force && m.live != nil && m.live.Date == today && now.Sub(m.liveAt) < m.cfg.RefreshInterval {
		return m.live
	}

	res := m.scanner.ScanLive(today)
	if res.Status != models.StatusOK {
		if res.IsDegraded() {
			logger.Warn("live scan degraded", "error", res.Err)
		}
		m.live = nil
		return nil
	}

	m.live = res.Value
	m.liveAt = now
	return m.live
}

// invalidateLive drops the cached live stats.
func (m *Manager) invalidateLive() {
	m.reportMu.Lock()
	m.live = nil
	m.reportMu.Unlock()
}

// pruneRetention deletes history older than RetentionDays, at most once a day.
func (m *Manager) pruneRetention(store db.HistoryStore) {
	if m.cfg.RetentionDays <= 0 || !store.Available() {
		return
	}
	now := m.now()
	today := now.Format(models.DateLayout)
	if m.lastPruned == today {
		return
	}
	m.lastPruned = today

	before := now.AddDate(0, 0, -m.cfg.RetentionDays).Format(models.DateLayout)
	deleted, err := store.ClearHistoryBeforeDate(before)
	if err != nil {
		logger.Warn("retention prune failed", "before", before, "error", err)
		return
	}
	if deleted > 0 {
		logger.Info("pruned history", "before", before, "rows", deleted)
	}
}

// checkAchievements notifies about achievements unlocked since the last
// check. The first check on a store without a record only seeds it.
func (m *Manager) checkAchievements(store db.HistoryStore, report *models.UsageReport) {
	current := report.UnlockedIDs()

	first := false
	if m.unlocked == nil {
		m.unlocked = make(map[string]bool)
		stored, err := store.GetMeta(achievementsKey)
		switch {
		case err != nil:
			logger.Warn("failed to read achievements", "error", err)
			first = true
		case stored == "":
			first = true
		default:
			var ids []string
			if err := json.Unmarshal([]byte(stored), &ids); err != nil {
				logger.Warn("invalid achievements record", "error", err)
				first = true
			}
			for _, id := range ids {
				m.unlocked[id] = true
			}
		}
	}

	fresh := lo.Filter(current, func(id string, _ int) bool { return !m.unlocked[id] })
	if len(fresh) == 0 && !first {
		return
	}
	for _, id := range fresh {
		m.unlocked[id] = true
	}

	ids := slices.Sorted(maps.Keys(m.unlocked))
	data, _ := json.Marshal(ids)
	if err := store.SetMeta(achievementsKey, string(data)); err != nil {
		logger.Warn("failed to record achievements", "error", err)
	}

	if first || !m.cfg.Notifications || m.Notify == nil {
		return
	}

	names := lo.FilterMap(report.Achievements, func(a models.Achievement, _ int) (string, bool) {
		return a.Name, lo.Contains(fresh, a.ID)
	})
	title := "Achievement unlocked"
	if len(names) > 1 {
		title = fmt.Sprintf("%d achievements unlocked", len(names))
	}
	if err := m.Notify(title, strings.Join(names, ", ")); err != nil {
		logger.Debug("notification failed", "error", err)
	}
}

// Start begins periodic refreshes and watches the input files.
func (m *Manager) Start() {
	if err := m.startWatcher(); err != nil {
		logger.Warn("file watching disabled", "error", err)
	}
	go m.poll()
}

func (m *Manager) poll() {
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(false)
		case <-m.stopChan:
			return
		}
	}
}

// startWatcher watches the stats cache directory, the projects directory and
// each project directory below it.
func (m *Manager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	var errs []error
	if err := watcher.Add(filepath.Dir(m.cfg.StatsCachePath)); err != nil {
		errs = append(errs, err)
	}
	if err := watcher.Add(m.cfg.ProjectsDir); err != nil {
		errs = append(errs, err)
	} else if entries, err := os.ReadDir(m.cfg.ProjectsDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = watcher.Add(filepath.Join(m.cfg.ProjectsDir, e.Name()))
			}
		}
	}
	if len(watcher.WatchList()) == 0 {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		m.watcher = nil
		return errors.Join(errs...)
	}

	go m.watchLoop()
	return nil
}

func (m *Manager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFSEvent(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleFSEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// New project directories need their own watch.
	if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == filepath.Clean(m.cfg.ProjectsDir) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = m.watcher.Add(event.Name)
			return
		}
	}

	if !m.isSource(event.Name) {
		return
	}

	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	path := event.Name
	m.debounceTimer = time.AfterFunc(debounceInterval, func() {
		m.broadcast(SourceChangedEvent{Path: path})
		if strings.HasSuffix(path, ".jsonl") {
			m.invalidateLive()
		}
		m.Refresh(false)
	})
}

// isSource reports whether path is an input the report depends on.
func (m *Manager) isSource(path string) bool {
	if filepath.Clean(path) == filepath.Clean(m.cfg.StatsCachePath) {
		return true
	}
	return strings.HasSuffix(path, ".jsonl")
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd that waits for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops background work and closes the store.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		if m.stopChan != nil {
			close(m.stopChan)
		}
	})

	m.debounceMu.Lock()
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceMu.Unlock()

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.handle != nil {
		if err := m.handle.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
