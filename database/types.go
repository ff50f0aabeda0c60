package database

import (
	"time"

	"github.com/google/uuid"
)

// SyncRun represents a row in the sync_runs table: one reconciliation run
// with its counters and every change it applied.
type SyncRun struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Created    int
	Deleted    int
	Updated    int
	Skipped    int
	DryRun     bool
	Changes    []HostChange
}

// HostChange represents a row in the host_changes table: one applied
// create, delete or per-category update.
type HostChange struct {
	ChangeID uuid.UUID
	HostName string
	Action   string // "create", "delete", "update"
	Category string // attribute category for updates, empty otherwise
	OldValue string
	NewValue string
	At       time.Time
}

// Change actions recorded in host_changes.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
	ActionUpdate = "update"
)
