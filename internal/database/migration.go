package database

import (
	"fmt"

	"github.com/wfunc/bingo-game/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrationModels 需要迁移的模型
var migrationModels = []interface{}{
	&models.BingoSession{},
	&models.BingoParticipant{},
}

// AutoMigrate 自动迁移全局数据库
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}
	return Migrate(DB, zap.NewNop())
}

// Migrate 迁移表结构并补充索引
func Migrate(db *gorm.DB, zl *zap.Logger) error {
	// 文件数据库需要防止多个进程同时迁移
	if path := sqlitePath(db); path != "" {
		CleanupStaleLocks(path)
		lockFile, err := acquireMigrationLock(path, zl)
		if err != nil {
			zl.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile, zl)
	}

	for _, model := range migrationModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("迁移 %T 失败: %w", model, err)
		}
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	zl.Info("数据库迁移完成", zap.Int("models", len(migrationModels)))
	return nil
}

// createIndexes 创建查询索引
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bingo_sessions_status ON bingo_sessions(status)",
		"CREATE INDEX IF NOT EXISTS idx_bingo_sessions_completed_at ON bingo_sessions(completed_at)",
		"CREATE INDEX IF NOT EXISTS idx_bingo_participants_player ON bingo_participants(player_id)",
	}
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("创建索引失败: %w", err)
		}
	}
	return nil
}

// DropAllTables 删除所有表（仅用于测试）
func DropAllTables(db *gorm.DB) error {
	for i := len(migrationModels) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(migrationModels[i]); err != nil {
			return fmt.Errorf("删除表失败: %w", err)
		}
	}
	return nil
}
