package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RecoveryAction 恢复后的处理方式
type RecoveryAction int

const (
	// RecoverRegister 只载入内存
	RecoverRegister RecoveryAction = iota
	// RecoverResumeTimer 载入并重启自动开奖
	RecoverResumeTimer
	// RecoverSkip 不需要恢复
	RecoverSkip
)

// RecoveredSession 待恢复的会话
type RecoveredSession struct {
	Session *Session
	Action  RecoveryAction
}

// RecoveryManager 进程重启后的会话恢复
type RecoveryManager struct {
	logger *zap.Logger
	store  Store
}

// NewRecoveryManager 创建恢复管理器
func NewRecoveryManager(logger *zap.Logger, store Store) *RecoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryManager{
		logger: logger,
		store:  store,
	}
}

// RecoverSessions 载入所有未结束的会话，并决定各自的处理方式
func (rm *RecoveryManager) RecoverSessions(ctx context.Context) ([]RecoveredSession, error) {
	sessions, err := rm.store.ListByStatus(ctx,
		StatusPreparing, StatusReady, StatusActive, StatusPaused, StatusPlaying)
	if err != nil {
		return nil, fmt.Errorf("加载未结束会话失败: %w", err)
	}

	var recovered []RecoveredSession
	for _, s := range sessions {
		action := rm.getRecoveryStrategy(s.Status)(s)
		if action == RecoverSkip {
			continue
		}
		recovered = append(recovered, RecoveredSession{Session: s, Action: action})

		rm.logger.Info("会话恢复",
			zap.String("session_id", s.ID),
			zap.String("variant", string(s.Variant)),
			zap.String("status", string(s.Status)),
			zap.Int("draws", len(s.History)))
	}
	return recovered, nil
}

// getRecoveryStrategy 根据状态获取恢复策略
func (rm *RecoveryManager) getRecoveryStrategy(status Status) func(*Session) RecoveryAction {
	strategies := map[Status]func(*Session) RecoveryAction{
		StatusPreparing: rm.recoverIdle,
		StatusReady:     rm.recoverIdle,
		StatusActive:    rm.recoverRunning,
		StatusPlaying:   rm.recoverRunning,
		StatusPaused:    rm.recoverPaused,
	}

	if strategy, exists := strategies[status]; exists {
		return strategy
	}
	return rm.recoverTerminal
}

// recoverIdle 未开始的会话直接载入
func (rm *RecoveryManager) recoverIdle(*Session) RecoveryAction {
	return RecoverRegister
}

// recoverRunning 进行中的会话需要重启定时器
func (rm *RecoveryManager) recoverRunning(s *Session) RecoveryAction {
	rm.logger.Info("重启自动开奖",
		zap.String("session_id", s.ID),
		zap.Int("interval_ms", s.Config.IntervalMs))
	return RecoverResumeTimer
}

// recoverPaused 暂停的会话保持暂停
func (rm *RecoveryManager) recoverPaused(*Session) RecoveryAction {
	return RecoverRegister
}

// recoverTerminal 已结束的会话不进入内存
func (rm *RecoveryManager) recoverTerminal(s *Session) RecoveryAction {
	rm.logger.Warn("跳过已结束会话", zap.String("session_id", s.ID))
	return RecoverSkip
}
