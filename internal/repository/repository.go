// Package repository provides database abstraction for the transfer
// engine's diagnostics store: one row per build_transfer call, recording
// rendezvous wall-clock and located/unlocated counts for later inspection
// (SPEC_FULL.md §2). It is never read back by the TransferOperator itself —
// a plan's in-memory weight records are the only thing Apply consults.
package repository

import (
	"context"
	"time"
)

// TransferRun is one archived build_transfer call.
type TransferRun struct {
	PlanID           string    `json:"plan_id"`
	ConfigSnapshot   string    `json:"config_snapshot"` // JSON-encoded pkg/config.Config at build time
	RendezvousMillis int64     `json:"rendezvous_millis"`
	LocatedCount     int       `json:"located_count"`
	UnlocatedCount   int       `json:"unlocated_count"`
	StartedAt        time.Time `json:"started_at"`
}

// RunRepository defines the diagnostics-store operations a
// TransferOperator's Build step drives.
type RunRepository interface {
	// SaveRun persists a single TransferRun, one row per build_transfer call.
	SaveRun(ctx context.Context, run *TransferRun) error

	// GetRun retrieves a previously-saved run by its plan ID.
	GetRun(ctx context.Context, planID string) (*TransferRun, error)

	// ListRuns returns the most recent runs, newest first, capped at limit.
	ListRuns(ctx context.Context, limit int) ([]*TransferRun, error)
}
