package models

import (
	"time"
)

// BingoSession 宾果会话表，整个会话以JSON文档保存
type BingoSession struct {
	BaseModel
	SessionID   string     `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	Variant     string     `gorm:"size:10;not null;index" json:"variant"` // grid, word
	Status      string     `gorm:"size:20;not null;index" json:"status"`  // preparing, ready, active, paused, playing, completed
	Data        string     `gorm:"type:text" json:"data"`
	Version     int64      `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`
}

// TableName 指定表名
func (BingoSession) TableName() string {
	return "bingo_sessions"
}

// BingoParticipant 会话参与者，用于查询玩家历史
type BingoParticipant struct {
	BaseModel
	SessionID   string     `gorm:"size:64;not null;uniqueIndex:idx_bingo_session_player" json:"session_id"`
	PlayerID    string     `gorm:"size:64;not null;uniqueIndex:idx_bingo_session_player;index" json:"player_id"`
	Won         bool       `gorm:"default:false" json:"won"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (BingoParticipant) TableName() string {
	return "bingo_participants"
}
