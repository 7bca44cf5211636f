package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// SaveRun persists a single TransferRun, one row per build_transfer call.
func (r *GormRunRepository) SaveRun(ctx context.Context, run *TransferRun) error {
	record := fromModel(run)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save transfer run: %w", err)
	}
	return nil
}

// GetRun retrieves a previously-saved run by its plan ID.
func (r *GormRunRepository) GetRun(ctx context.Context, planID string) (*TransferRun, error) {
	var record TransferRunRecord

	err := r.db.WithContext(ctx).Where("plan_id = ?", planID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transfer run not found: %s", planID)
		}
		return nil, fmt.Errorf("failed to get transfer run: %w", err)
	}

	return record.ToModel(), nil
}

// ListRuns returns the most recent runs, newest first, capped at limit.
func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*TransferRun, error) {
	var records []TransferRunRecord

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer runs: %w", err)
	}

	runs := make([]*TransferRun, len(records))
	for i, rec := range records {
		runs[i] = rec.ToModel()
	}
	return runs, nil
}
