package repository

import "time"

// TransferRunRecord represents the transfer_runs table — the gorm model
// backing RunRepository, following the teacher's column-tagged-struct plus
// TableName()/ToModel() convention (junjiewwang-perf-analysis's
// HotmethodTask) rather than raw SQL.
type TransferRunRecord struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlanID           string    `gorm:"column:plan_id;type:varchar(64);uniqueIndex"`
	ConfigSnapshot   string    `gorm:"column:config_snapshot;type:text"`
	RendezvousMillis int64     `gorm:"column:rendezvous_millis"`
	LocatedCount     int       `gorm:"column:located_count"`
	UnlocatedCount   int       `gorm:"column:unlocated_count"`
	StartedAt        time.Time `gorm:"column:started_at"`
}

// TableName returns the table name for TransferRunRecord.
func (TransferRunRecord) TableName() string {
	return "transfer_runs"
}

// ToModel converts TransferRunRecord to TransferRun.
func (r *TransferRunRecord) ToModel() *TransferRun {
	return &TransferRun{
		PlanID:           r.PlanID,
		ConfigSnapshot:   r.ConfigSnapshot,
		RendezvousMillis: r.RendezvousMillis,
		LocatedCount:     r.LocatedCount,
		UnlocatedCount:   r.UnlocatedCount,
		StartedAt:        r.StartedAt,
	}
}

// fromModel builds a TransferRunRecord from a TransferRun for insertion.
func fromModel(run *TransferRun) *TransferRunRecord {
	return &TransferRunRecord{
		PlanID:           run.PlanID,
		ConfigSnapshot:   run.ConfigSnapshot,
		RendezvousMillis: run.RendezvousMillis,
		LocatedCount:     run.LocatedCount,
		UnlocatedCount:   run.UnlocatedCount,
		StartedAt:        run.StartedAt,
	}
}
