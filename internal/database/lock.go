package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockSuffix     = ".migration.lock"
	lockRetries    = 30
	lockRetryDelay = time.Second
	lockStaleAfter = 5 * time.Minute
)

// acquireMigrationLock 获取迁移锁
func acquireMigrationLock(dbPath string, zl *zap.Logger) (*os.File, error) {
	lockPath := dbPath + lockSuffix

	for i := 0; i < lockRetries; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			zl.Debug("获取迁移锁成功", zap.String("lock", lockPath))
			return lockFile, nil
		}

		if info, err := os.Stat(lockPath); err == nil && time.Since(info.ModTime()) > lockStaleAfter {
			zl.Warn("迁移锁文件过期，尝试删除", zap.String("lock", lockPath))
			os.Remove(lockPath)
			continue
		}

		zl.Debug("等待迁移锁...", zap.Int("attempt", i+1))
		time.Sleep(lockRetryDelay)
	}

	return nil, fmt.Errorf("无法获取迁移锁，可能有其他进程正在执行迁移")
}

// releaseMigrationLock 释放迁移锁
func releaseMigrationLock(lockFile *os.File, zl *zap.Logger) {
	if lockFile == nil {
		return
	}

	lockPath := lockFile.Name()
	lockFile.Close()
	os.Remove(lockPath)
	zl.Debug("释放迁移锁", zap.String("lock", lockPath))
}

// sqlitePath 文件型 sqlite 数据库的路径，其他数据库和内存库返回空
func sqlitePath(db *gorm.DB) string {
	if name := db.Dialector.Name(); name != "sqlite" && name != "sqlite3" {
		return ""
	}

	sqlDB, err := db.DB()
	if err != nil {
		return ""
	}
	row := sqlDB.QueryRow("PRAGMA database_list")
	var seq int
	var name, file string
	if err := row.Scan(&seq, &name, &file); err != nil {
		return ""
	}
	return file
}

// CleanupStaleLocks 清理数据库旁过期的锁文件
func CleanupStaleLocks(dbPath string) {
	matches, _ := filepath.Glob(dbPath + "*" + lockSuffix)
	for _, lockFile := range matches {
		if info, err := os.Stat(lockFile); err == nil && time.Since(info.ModTime()) > 2*lockStaleAfter {
			os.Remove(lockFile)
		}
	}
}
