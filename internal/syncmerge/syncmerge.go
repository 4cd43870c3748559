// Package syncmerge exchanges historical rows between machines through
// bundle files and merges foreign rows additively.
package syncmerge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// Merger exports and imports bundles against a historical store.
type Merger struct {
	Store db.HistoryStore
	Clock func() time.Time
}

// New creates a merger for store.
func New(store db.HistoryStore) *Merger {
	return &Merger{Store: store, Clock: time.Now}
}

// Export tags every stored row with the local machine id.
func (m *Merger) Export() (*models.SyncBundle, error) {
	if !m.Store.Available() {
		return nil, db.ErrStoreUnavailable
	}
	machineID := m.Store.MachineID()

	snapshots, err := m.Store.GetDailySnapshots()
	if err != nil {
		return nil, fmt.Errorf("exporting snapshots: %w", err)
	}
	usage, err := m.Store.GetModelUsage()
	if err != nil {
		return nil, fmt.Errorf("exporting model usage: %w", err)
	}

	now := time.Now
	if m.Clock != nil {
		now = m.Clock
	}
	return &models.SyncBundle{
		ExportID:   uuid.NewString(),
		MachineID:  machineID,
		ExportedAt: now().UTC(),
		Snapshots: lo.Map(snapshots, func(s models.DailySnapshot, _ int) models.SyncSnapshot {
			return models.SyncSnapshot{MachineID: machineID, DailySnapshot: s}
		}),
		ModelUsage: lo.Map(usage, func(r models.ModelUsageRecord, _ int) models.SyncModelUsage {
			return models.SyncModelUsage{MachineID: machineID, ModelUsageRecord: r}
		}),
	}, nil
}

// Import merges a bundle into the store. Rows tagged with the local machine
// id are skipped. Other rows are added to any existing row for the same key,
// so importing the same bundle twice counts its rows twice.
func (m *Merger) Import(bundle *models.SyncBundle) (models.ImportResult, error) {
	var res models.ImportResult
	if !m.Store.Available() {
		return res, db.ErrStoreUnavailable
	}
	if bundle == nil {
		return res, errors.New("nil sync bundle")
	}
	local := m.Store.MachineID()

	for _, s := range bundle.Snapshots {
		if rowMachine(s.MachineID, bundle.MachineID) == local {
			res.Skipped++
			continue
		}
		inserted, err := m.Store.MergeDailySnapshot(s.DailySnapshot)
		if err != nil {
			return res, err
		}
		count(&res, inserted)
	}

	for _, u := range bundle.ModelUsage {
		if rowMachine(u.MachineID, bundle.MachineID) == local {
			res.Skipped++
			continue
		}
		inserted, err := m.Store.MergeModelUsage(u.ModelUsageRecord)
		if err != nil {
			return res, err
		}
		count(&res, inserted)
	}

	if res.Inserted+res.Merged > 0 {
		if err := m.Store.Save(); err != nil {
			return res, err
		}
	}
	logger.Info("sync bundle imported",
		"export_id", bundle.ExportID,
		"from", bundle.MachineID,
		"inserted", res.Inserted,
		"merged", res.Merged,
		"skipped", res.Skipped,
	)
	return res, nil
}

// rowMachine falls back to the bundle's machine id for untagged rows.
func rowMachine(row, bundle string) string {
	if row != "" {
		return row
	}
	return bundle
}

func count(res *models.ImportResult, inserted bool) {
	if inserted {
		res.Inserted++
	} else {
		res.Merged++
	}
}

// WriteBundle exports the store to a JSON file at path.
func (m *Merger) WriteBundle(path string) (*models.SyncBundle, error) {
	bundle, err := m.Export()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sync bundle: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating bundle directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing sync bundle: %w", err)
	}
	return bundle, nil
}

// ReadBundle loads a bundle file.
func ReadBundle(path string) (*models.SyncBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sync bundle: %w", err)
	}
	var bundle models.SyncBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing sync bundle: %w", err)
	}
	return &bundle, nil
}
