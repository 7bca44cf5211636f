package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGormDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNewRepositories(t *testing.T) {
	db := newTestGormDB(t)

	t.Run("SQLite", func(t *testing.T) {
		repos := NewRepositories(db, "sqlite")
		require.NotNil(t, repos)
		assert.NotNil(t, repos.Run)
	})

	t.Run("Default", func(t *testing.T) {
		repos := NewRepositories(db, "unknown")
		require.NotNil(t, repos)
		assert.NotNil(t, repos.Run)
	})
}

func TestRepositories_Close(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	err := repos.Close()
	assert.NoError(t, err)
}

func TestRepositories_DB(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	sqlDB := repos.DB()
	assert.NotNil(t, sqlDB)
}

func TestRepositories_GormDB(t *testing.T) {
	db := newTestGormDB(t)
	repos := NewRepositories(db, "sqlite")

	gormDB := repos.GormDB()
	assert.Equal(t, db, gormDB)
}

func TestNewGormDB_SQLiteInMemory(t *testing.T) {
	cfg := &DBConfig{Type: "sqlite", DSN: ":memory:"}

	db, err := NewGormDB(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	// AutoMigrate should have created the transfer_runs table.
	assert.True(t, db.Migrator().HasTable(&TransferRunRecord{}))
}

func TestNewGormDB_UnsupportedType(t *testing.T) {
	cfg := &DBConfig{Type: "oracle"}

	db, err := NewGormDB(cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestDBConfig_Validation(t *testing.T) {
	t.Run("ValidPostgresConfig", func(t *testing.T) {
		cfg := &DBConfig{
			Type:     "postgres",
			Host:     "localhost",
			Port:     5432,
			Database: "testdb",
			User:     "testuser",
			Password: "testpass",
			MaxConns: 10,
		}
		assert.Equal(t, "postgres", cfg.Type)
		assert.Equal(t, 5432, cfg.Port)
	})

	t.Run("ValidMySQLConfig", func(t *testing.T) {
		cfg := &DBConfig{
			Type:     "mysql",
			Host:     "localhost",
			Port:     3306,
			Database: "testdb",
			User:     "testuser",
			Password: "testpass",
			MaxConns: 10,
		}
		assert.Equal(t, "mysql", cfg.Type)
		assert.Equal(t, 3306, cfg.Port)
	})

	t.Run("ValidSQLiteConfig", func(t *testing.T) {
		cfg := &DBConfig{Type: "sqlite", DSN: ":memory:"}
		assert.Equal(t, "sqlite", cfg.Type)
	})
}
