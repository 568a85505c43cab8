package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/models"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func TestOpen_SQLiteFileAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bingo.db")
	db, err := Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          path,
		MaxIdleConns: 1,
		MaxOpenConns: 10,
		LogLevel:     "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	assert.NotEmpty(t, sqlitePath(db))

	require.NoError(t, Migrate(db, zap.NewNop()))
	assert.True(t, db.Migrator().HasTable(&models.BingoSession{}))
	assert.True(t, db.Migrator().HasTable(&models.BingoParticipant{}))

	// 迁移结束后锁文件已释放
	_, err = os.Stat(path + lockSuffix)
	assert.True(t, os.IsNotExist(err))

	// 重复迁移不报错
	require.NoError(t, Migrate(db, zap.NewNop()))

	require.NoError(t, DropAllTables(db))
	assert.False(t, db.Migrator().HasTable(&models.BingoSession{}))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel(""))
}

func TestGormLogger_LogModeReturnsCopy(t *testing.T) {
	base := NewGormLogger(zap.NewNop(), gormlogger.Warn)
	silent := base.LogMode(gormlogger.Silent).(*GormLogger)

	assert.Equal(t, gormlogger.Silent, silent.logLevel)
	assert.Equal(t, gormlogger.Warn, base.logLevel)
}

func TestMigrationLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.db")

	lock, err := acquireMigrationLock(path, zap.NewNop())
	require.NoError(t, err)
	_, err = os.Stat(path + lockSuffix)
	require.NoError(t, err)

	releaseMigrationLock(lock, zap.NewNop())
	_, err = os.Stat(path + lockSuffix)
	assert.True(t, os.IsNotExist(err))
}
