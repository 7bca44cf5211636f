package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&TransferRunRecord{}))

	return db
}

func TestGormRunRepository_SaveAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("GetRun_NotFound", func(t *testing.T) {
		run, err := repo.GetRun(ctx, "nonexistent")
		assert.Error(t, err)
		assert.Nil(t, run)
		assert.Contains(t, err.Error(), "transfer run not found")
	})

	t.Run("SaveRun_Success", func(t *testing.T) {
		run := &TransferRun{
			PlanID:           "plan-1",
			ConfigSnapshot:   `{"rendezvous":{}}`,
			RendezvousMillis: 42,
			LocatedCount:     9,
			UnlocatedCount:   1,
			StartedAt:        time.Now().Truncate(time.Second),
		}

		err := repo.SaveRun(ctx, run)
		require.NoError(t, err)

		fetched, err := repo.GetRun(ctx, "plan-1")
		require.NoError(t, err)
		assert.Equal(t, run.PlanID, fetched.PlanID)
		assert.Equal(t, run.RendezvousMillis, fetched.RendezvousMillis)
		assert.Equal(t, run.LocatedCount, fetched.LocatedCount)
		assert.Equal(t, run.UnlocatedCount, fetched.UnlocatedCount)
	})

	t.Run("SaveRun_DuplicatePlanID", func(t *testing.T) {
		run := &TransferRun{PlanID: "plan-1", StartedAt: time.Now()}
		err := repo.SaveRun(ctx, run)
		assert.Error(t, err)
	})
}

func TestGormRunRepository_ListRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("ListRuns_Empty", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	for i, planID := range []string{"plan-a", "plan-b", "plan-c"} {
		run := &TransferRun{
			PlanID:       planID,
			LocatedCount: i,
			StartedAt:    time.Now(),
		}
		require.NoError(t, repo.SaveRun(ctx, run))
	}

	t.Run("ListRuns_NewestFirst", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "plan-c", runs[0].PlanID)
		assert.Equal(t, "plan-a", runs[2].PlanID)
	})

	t.Run("ListRuns_Limit", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}
