package syncmerge

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

func newTestStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func remoteBundle() *models.SyncBundle {
	return &models.SyncBundle{
		ExportID:  "export-1",
		MachineID: "laptop-1234abcd",
		Snapshots: []models.SyncSnapshot{
			{MachineID: "laptop-1234abcd", DailySnapshot: models.DailySnapshot{Date: "2024-01-01", Cost: 2, Messages: 10, Tokens: 100, Sessions: 1}},
		},
		ModelUsage: []models.SyncModelUsage{
			{MachineID: "laptop-1234abcd", ModelUsageRecord: models.ModelUsageRecord{
				Date: "2024-01-01", Model: "claude-opus-4", TokenCounts: models.TokenCounts{InputTokens: 50},
			}},
		},
	}
}

func TestExport_TagsRows(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertDailySnapshot(models.DailySnapshot{Date: "2024-01-01", Messages: 1}); err != nil {
		t.Fatal(err)
	}

	bundle, err := New(store).Export()
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if bundle.ExportID == "" || bundle.MachineID != store.MachineID() {
		t.Errorf("bundle header = %q/%q", bundle.ExportID, bundle.MachineID)
	}
	if len(bundle.Snapshots) != 1 || bundle.Snapshots[0].MachineID != store.MachineID() {
		t.Errorf("Snapshots = %+v", bundle.Snapshots)
	}
}

func TestImport_SelfIsNoop(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertDailySnapshot(models.DailySnapshot{Date: "2024-01-01", Messages: 7}); err != nil {
		t.Fatal(err)
	}
	m := New(store)

	bundle, err := m.Export()
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Import(bundle)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Inserted != 0 || res.Merged != 0 || res.Skipped != 1 {
		t.Errorf("Import() = %+v", res)
	}

	s, _ := store.GetDailySnapshot("2024-01-01")
	if s.Messages != 7 {
		t.Errorf("self import changed data: %+v", s)
	}
}

func TestImport_InsertThenMerge(t *testing.T) {
	store := newTestStore(t)
	m := New(store)

	res, err := m.Import(remoteBundle())
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Inserted != 2 || res.Merged != 0 {
		t.Errorf("first Import() = %+v", res)
	}

	// A repeated import of the same bundle is added again; there is no
	// export-id deduplication.
	res, err = m.Import(remoteBundle())
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Inserted != 0 || res.Merged != 2 {
		t.Errorf("second Import() = %+v", res)
	}

	s, _ := store.GetDailySnapshot("2024-01-01")
	want := models.DailySnapshot{Date: "2024-01-01", Cost: 4, Messages: 20, Tokens: 200, Sessions: 2}
	if s == nil || *s != want {
		t.Errorf("after double import = %+v, want %+v", s, want)
	}
	usage, _ := store.GetModelUsageForDate("2024-01-01")
	if len(usage) != 1 || usage[0].InputTokens != 100 {
		t.Errorf("model usage after double import = %+v", usage)
	}
}

func TestImport_MergesIntoLocalRow(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertDailySnapshot(models.DailySnapshot{Date: "2024-01-01", Messages: 5}); err != nil {
		t.Fatal(err)
	}

	res, err := New(store).Import(remoteBundle())
	if err != nil {
		t.Fatal(err)
	}
	if res.Merged != 1 || res.Inserted != 1 {
		t.Errorf("Import() = %+v", res)
	}
	s, _ := store.GetDailySnapshot("2024-01-01")
	if s.Messages != 15 {
		t.Errorf("Messages = %d, want 15", s.Messages)
	}
}

func TestBundleFileRoundTrip(t *testing.T) {
	src := newTestStore(t)
	if err := src.UpsertDailySnapshot(models.DailySnapshot{Date: "2024-02-02", Messages: 3, Cost: 1.25}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out", "bundle.json")
	if _, err := New(src).WriteBundle(path); err != nil {
		t.Fatalf("WriteBundle() failed: %v", err)
	}

	bundle, err := ReadBundle(path)
	if err != nil {
		t.Fatalf("ReadBundle() failed: %v", err)
	}

	dst := newTestStore(t)
	res, err := New(dst).Import(bundle)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 1 {
		t.Errorf("Import() = %+v", res)
	}
	s, _ := dst.GetDailySnapshot("2024-02-02")
	if s == nil || s.Cost != 1.25 {
		t.Errorf("imported snapshot = %+v", s)
	}
}

func TestUnavailableStore(t *testing.T) {
	m := New(db.Unavailable{})
	if _, err := m.Export(); !errors.Is(err, db.ErrStoreUnavailable) {
		t.Errorf("Export() error = %v", err)
	}
	if _, err := m.Import(remoteBundle()); !errors.Is(err, db.ErrStoreUnavailable) {
		t.Errorf("Import() error = %v", err)
	}
}
