package db

import (
	"errors"
	"sync"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// ErrStoreUnavailable is returned when the historical store could not be opened.
var ErrStoreUnavailable = errors.New("historical store unavailable")

// HistoryStore is the set of store operations used by the pipeline.
// *DB and Unavailable both implement it.
type HistoryStore interface {
	Available() bool
	MachineID() string
	GetMeta(key string) (string, error)
	SetMeta(key, value string) error

	UpsertDailySnapshot(s models.DailySnapshot) error
	UpsertDailySnapshots(snapshots []models.DailySnapshot) error
	UpsertModelUsage(r models.ModelUsageRecord) error
	GetDailySnapshots() ([]models.DailySnapshot, error)
	GetModelUsage() ([]models.ModelUsageRecord, error)
	GetModelUsageForDate(date string) ([]models.ModelUsageRecord, error)
	GetDateRange() (oldest, newest string, err error)
	GetTotals() (models.HistoryTotals, error)
	ClearHistoryBeforeDate(date string) (int64, error)
	Truncate() error

	MergeDailySnapshot(s models.DailySnapshot) (bool, error)
	MergeModelUsage(r models.ModelUsageRecord) (bool, error)
	InsertDailySnapshotIfAbsent(s models.DailySnapshot) (bool, error)

	Save() error
	Close() error
}

var (
	_ HistoryStore = (*DB)(nil)
	_ HistoryStore = Unavailable{}
)

// Unavailable is the store used when the database failed to open.
// Reads return empty results and writes are dropped.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) MachineID() string { return "" }

func (Unavailable) GetMeta(string) (string, error) { return "", nil }

func (Unavailable) SetMeta(string, string) error { return nil }

func (Unavailable) UpsertDailySnapshot(models.DailySnapshot) error { return nil }

func (Unavailable) UpsertDailySnapshots([]models.DailySnapshot) error { return nil }

func (Unavailable) UpsertModelUsage(models.ModelUsageRecord) error { return nil }

func (Unavailable) GetDailySnapshots() ([]models.DailySnapshot, error) { return nil, nil }

func (Unavailable) GetModelUsage() ([]models.ModelUsageRecord, error) { return nil, nil }

func (Unavailable) GetModelUsageForDate(string) ([]models.ModelUsageRecord, error) {
	return nil, nil
}

func (Unavailable) GetDateRange() (string, string, error) { return "", "", nil }

func (Unavailable) GetTotals() (models.HistoryTotals, error) {
	return models.HistoryTotals{}, nil
}

func (Unavailable) ClearHistoryBeforeDate(string) (int64, error) { return 0, nil }

func (Unavailable) Truncate() error { return nil }

func (Unavailable) MergeDailySnapshot(models.DailySnapshot) (bool, error) { return false, nil }

func (Unavailable) MergeModelUsage(models.ModelUsageRecord) (bool, error) { return false, nil }

func (Unavailable) InsertDailySnapshotIfAbsent(models.DailySnapshot) (bool, error) {
	return false, nil
}

func (Unavailable) Save() error { return nil }

func (Unavailable) Close() error { return nil }

// Handle opens the database at most once. Concurrent callers of Get wait for
// the same open and observe the same result.
type Handle struct {
	path string
	open func(path string) (*DB, error)

	once sync.Once
	mu   sync.Mutex
	db   *DB
	err  error
}

// NewHandle returns a handle for the database at path. Nothing is opened
// until the first call to Get.
func NewHandle(path string) *Handle {
	return &Handle{path: path, open: New}
}

// Get opens the database on first use and returns it.
func (h *Handle) Get() (*DB, error) {
	h.once.Do(func() {
		db, err := h.open(h.path)
		h.mu.Lock()
		defer h.mu.Unlock()
		if err != nil {
			logger.Warn("historical store unavailable", "path", h.path, "error", err)
			h.err = errors.Join(ErrStoreUnavailable, err)
			return
		}
		h.db = db
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db, h.err
}

// Store returns the opened database, or Unavailable when opening failed.
func (h *Handle) Store() HistoryStore {
	db, err := h.Get()
	if err != nil || db == nil {
		return Unavailable{}
	}
	return db
}

// Close closes the database if it was opened. Later calls to Get return
// ErrStoreUnavailable.
func (h *Handle) Close() error {
	h.once.Do(func() {})

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		if h.err == nil {
			h.err = ErrStoreUnavailable
		}
		return nil
	}
	err := h.db.Close()
	h.db = nil
	h.err = ErrStoreUnavailable
	return err
}
