package game

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
	"github.com/wfunc/bingo-game/internal/repository"
	"gorm.io/gorm"
)

// Store 会话持久化接口
// Save 以 Session.Version 作为期望版本，成功后版本号加一
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Session, error)
	History(ctx context.Context, playerID string) ([]HistoryEntry, error)
}

// Purger 可以删除过期历史的存储
type Purger interface {
	PurgeCompleted(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStore 内存持久化（用于测试和单进程部署）
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	vers map[string]int64
}

// NewMemoryStore 创建内存持久化器
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
		vers: make(map[string]int64),
	}
}

// Load 加载会话
func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[sessionID]
	if !ok {
		return nil, errors.New(errors.ErrSessionNotFound, sessionID)
	}
	return decodeSession(doc, m.vers[sessionID])
}

// Save 比较版本后保存
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.vers[s.ID]; current != s.Version {
		return errors.Newf(errors.ErrVersionConflict, "会话 %s 期望版本 %d 实际版本 %d", s.ID, s.Version, current)
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDataIntegrity, "序列化会话 %s 失败", s.ID)
	}
	m.docs[s.ID] = doc
	m.vers[s.ID] = s.Version + 1
	s.Version++
	return nil
}

// ListByStatus 按状态列出会话
func (m *MemoryStore) ListByStatus(_ context.Context, statuses ...Status) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Session
	for id, doc := range m.docs {
		s, err := decodeSession(doc, m.vers[id])
		if err != nil {
			return nil, err
		}
		for _, st := range statuses {
			if s.Status == st {
				result = append(result, s)
				break
			}
		}
	}
	return result, nil
}

// History 玩家参与过的已结束会话
func (m *MemoryStore) History(ctx context.Context, playerID string) ([]HistoryEntry, error) {
	completed, err := m.ListByStatus(ctx, StatusCompleted)
	if err != nil {
		return nil, err
	}

	entries := []HistoryEntry{}
	for _, s := range completed {
		if !s.HasPlayer(playerID) {
			continue
		}
		entries = append(entries, HistoryEntry{
			SessionID:   s.ID,
			Variant:     s.Variant,
			Won:         s.HasWon(playerID),
			CompletedAt: s.CompletedAt,
		})
	}
	sortHistory(entries)
	return entries, nil
}

// DatabaseStore 数据库持久化
type DatabaseStore struct {
	repo repository.BingoSessionRepository
}

// NewDatabaseStore 创建数据库持久化器
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{
		repo: repository.NewBingoSessionRepository(db),
	}
}

// Load 从数据库加载会话
func (d *DatabaseStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	row, err := d.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrSessionNotFound, sessionID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询会话失败")
	}
	return decodeSession([]byte(row.Data), row.Version)
}

// Save 在事务中比较版本后保存会话和参与者
func (d *DatabaseStore) Save(ctx context.Context, s *Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDataIntegrity, "序列化会话 %s 失败", s.ID)
	}

	row := &models.BingoSession{
		SessionID:   s.ID,
		Variant:     string(s.Variant),
		Status:      string(s.Status),
		Data:        string(doc),
		CompletedAt: s.CompletedAt,
	}

	participants := make([]models.BingoParticipant, 0, len(s.Roster))
	for playerID, won := range s.Participants() {
		participants = append(participants, models.BingoParticipant{
			SessionID:   s.ID,
			PlayerID:    playerID,
			Won:         won,
			CompletedAt: s.CompletedAt,
		})
	}

	if err := d.repo.SaveVersioned(ctx, row, s.Version, participants); err != nil {
		return err
	}
	s.Version = row.Version
	return nil
}

// ListByStatus 按状态列出会话
func (d *DatabaseStore) ListByStatus(ctx context.Context, statuses ...Status) ([]*Session, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := d.repo.FindByStatus(ctx, names...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "按状态查询会话失败")
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		s, err := decodeSession([]byte(row.Data), row.Version)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// History 玩家参与过的全部已结束会话，按页读完
func (d *DatabaseStore) History(ctx context.Context, playerID string) ([]HistoryEntry, error) {
	entries := []HistoryEntry{}
	for p := repository.NewPagination(1, repository.MaxPageSize); ; p.Page++ {
		rows, err := d.repo.FindHistoryByPlayer(ctx, playerID, p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询历史失败")
		}
		for _, row := range rows {
			entries = append(entries, HistoryEntry{
				SessionID:   row.SessionID,
				Variant:     Variant(row.Variant),
				Won:         row.Won,
				CompletedAt: row.CompletedAt,
			})
		}
		if len(rows) == 0 || !p.HasMore() {
			return entries, nil
		}
	}
}

// PurgeCompleted 删除早于指定时间结束的会话和参与记录
func (d *DatabaseStore) PurgeCompleted(ctx context.Context, before time.Time) (int64, error) {
	n, err := d.repo.DeleteCompletedBefore(ctx, before)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabaseDelete, "清理历史会话失败")
	}
	return n, nil
}

func decodeSession(doc []byte, version int64) (*Session, error) {
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrDataIntegrity, "反序列化会话失败")
	}
	s.Version = version
	return &s, nil
}
