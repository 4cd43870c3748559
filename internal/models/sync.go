package models

import "time"

// SyncBundle is the document exchanged between machines.
type SyncBundle struct {
	ExportID   string           `json:"exportId"`
	MachineID  string           `json:"machineId"`
	ExportedAt time.Time        `json:"exportedAt"`
	Snapshots  []SyncSnapshot   `json:"snapshots"`
	ModelUsage []SyncModelUsage `json:"modelUsage"`
}

// SyncSnapshot is a daily snapshot tagged with the machine that produced it.
type SyncSnapshot struct {
	MachineID string `json:"machineId"`
	DailySnapshot
}

// SyncModelUsage is a model usage row tagged with the machine that produced it.
type SyncModelUsage struct {
	MachineID string `json:"machineId"`
	ModelUsageRecord
}

// ImportResult counts how remote rows were applied.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Merged   int `json:"merged"`
	Skipped  int `json:"skipped"`
}
