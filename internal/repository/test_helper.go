package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建内存测试数据库并迁移宾果模型
func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库每个连接都是独立的数据库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.BingoSession{},
		&models.BingoParticipant{},
	)
	require.NoError(t, err)

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 关闭测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestBingoSession 创建测试会话行
func CreateTestBingoSession(sessionID, status string) *models.BingoSession {
	row := &models.BingoSession{
		SessionID: sessionID,
		Variant:   "grid",
		Status:    status,
		Data:      `{"id":"` + sessionID + `"}`,
	}
	if status == "completed" {
		now := time.Now()
		row.CompletedAt = &now
	}
	return row
}
