package game

import (
	"strings"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
)

// require 检查当前状态是否允许事件，不改变状态
func (s *Session) require(event Event) error {
	_, err := MachineFor(s.Variant).Next(s.Status, event)
	return err
}

// Prepare 准备完成，开放加入
func (s *Session) Prepare(cardPoolSize int) error {
	if err := s.fire(EventPrepare); err != nil {
		return err
	}
	if s.Grid != nil {
		if cardPoolSize <= 0 {
			cardPoolSize = DefaultCardPoolSize
		}
		s.Grid.PoolSize = cardPoolSize
	}
	return nil
}

// Join 玩家加入，不分配卡片或单词
func (s *Session) Join(playerID string) error {
	if err := s.require(EventJoin); err != nil {
		return err
	}
	if strings.TrimSpace(playerID) == "" {
		return errors.New(errors.ErrInvalidParam, "玩家ID不能为空")
	}
	if s.HasPlayer(playerID) {
		return errors.New(errors.ErrAlreadyJoined, playerID)
	}
	if len(s.Roster) >= s.Config.Capacity {
		return errors.Newf(errors.ErrGameFull, "最多 %d 人", s.Config.Capacity)
	}
	s.Roster = append(s.Roster, playerID)
	return nil
}

// Start 开始游戏
func (s *Session) Start(now time.Time) error {
	if err := s.require(EventStart); err != nil {
		return err
	}

	switch s.Variant {
	case VariantGrid:
		if err := s.canStartGrid(); err != nil {
			return err
		}
	case VariantWord:
		if err := s.canStartWord(); err != nil {
			return err
		}
		s.resetLetterPool()
	}

	if err := s.fire(EventStart); err != nil {
		return err
	}
	s.StartedAt = &now
	return nil
}

// Stop 管理员强制结束
func (s *Session) Stop(now time.Time) error {
	if err := s.fire(EventStop); err != nil {
		return err
	}
	s.markCompleted(now)
	return nil
}

// complete 正常结束（中奖或号码开完）
func (s *Session) complete(now time.Time) error {
	if err := s.fire(EventComplete); err != nil {
		return err
	}
	s.markCompleted(now)
	return nil
}

func (s *Session) markCompleted(now time.Time) {
	if s.CompletedAt == nil {
		s.CompletedAt = &now
	}
}
