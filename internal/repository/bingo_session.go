package repository

import (
	"context"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
	"gorm.io/gorm"
)

// BingoSessionRepository 宾果会话仓储接口
type BingoSessionRepository interface {
	BaseRepository
	SaveVersioned(ctx context.Context, row *models.BingoSession, expected int64, participants []models.BingoParticipant) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.BingoSession, error)
	FindByStatus(ctx context.Context, statuses ...string) ([]*models.BingoSession, error)
	FindParticipants(ctx context.Context, sessionID string) ([]*models.BingoParticipant, error)
	FindHistoryByPlayer(ctx context.Context, playerID string, p *Pagination) ([]*PlayerHistory, error)
	DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error)
}

// PlayerHistory 玩家参与过的已结束会话
type PlayerHistory struct {
	SessionID   string     `json:"session_id"`
	Variant     string     `json:"variant"`
	Won         bool       `json:"won"`
	CompletedAt *time.Time `json:"completed_at"`
}

// bingoSessionRepo 宾果会话仓储实现
type bingoSessionRepo struct {
	*BaseRepo
}

// NewBingoSessionRepository 创建宾果会话仓储
func NewBingoSessionRepository(db *gorm.DB) BingoSessionRepository {
	return &bingoSessionRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// SaveVersioned 按版本号保存会话（expected为0表示新建），同时更新参与者
func (r *bingoSessionRepo) SaveVersioned(ctx context.Context, row *models.BingoSession, expected int64, participants []models.BingoParticipant) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if expected == 0 {
			var count int64
			if err := tx.Model(&models.BingoSession{}).
				Where("session_id = ?", row.SessionID).
				Count(&count).Error; err != nil {
				return errors.Wrap(err, errors.ErrDatabaseQuery)
			}
			if count > 0 {
				return errors.Newf(errors.ErrVersionConflict, "会话 %s 已存在", row.SessionID)
			}
			row.Version = 1
			if err := tx.Create(row).Error; err != nil {
				return errors.Wrap(err, errors.ErrDatabaseInsert)
			}
		} else {
			result := tx.Model(&models.BingoSession{}).
				Where("session_id = ? AND version = ?", row.SessionID, expected).
				Updates(map[string]interface{}{
					"variant":      row.Variant,
					"status":       row.Status,
					"data":         row.Data,
					"version":      expected + 1,
					"completed_at": row.CompletedAt,
					"updated_at":   time.Now(),
				})
			if result.Error != nil {
				return errors.Wrap(result.Error, errors.ErrDatabaseUpdate)
			}
			if result.RowsAffected == 0 {
				return errors.Newf(errors.ErrVersionConflict, "会话 %s 版本 %d 已过期", row.SessionID, expected)
			}
			row.Version = expected + 1
		}

		for i := range participants {
			p := participants[i]
			err := tx.Where("session_id = ? AND player_id = ?", p.SessionID, p.PlayerID).
				Assign(map[string]interface{}{
					"won":          p.Won,
					"completed_at": p.CompletedAt,
				}).
				FirstOrCreate(&p).Error
			if err != nil {
				return errors.Wrap(err, errors.ErrDatabaseUpdate, "保存参与者失败")
			}
		}
		return nil
	})
}

// FindBySessionID 根据会话ID查找
func (r *bingoSessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.BingoSession, error) {
	var row models.BingoSession
	err := r.conn(ctx).
		Where("session_id = ?", sessionID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByStatus 按状态查找
func (r *bingoSessionRepo) FindByStatus(ctx context.Context, statuses ...string) ([]*models.BingoSession, error) {
	var rows []*models.BingoSession
	err := r.conn(ctx).
		Where("status IN ?", statuses).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

// FindParticipants 查找会话参与者
func (r *bingoSessionRepo) FindParticipants(ctx context.Context, sessionID string) ([]*models.BingoParticipant, error) {
	var rows []*models.BingoParticipant
	err := r.conn(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&rows).Error
	return rows, err
}

// FindHistoryByPlayer 查找玩家参与过的已结束会话（分页）
func (r *bingoSessionRepo) FindHistoryByPlayer(ctx context.Context, playerID string, p *Pagination) ([]*PlayerHistory, error) {
	var rows []*PlayerHistory

	query := CompletedBy("s.status")(r.conn(ctx).
		Table("bingo_participants AS p").
		Joins("JOIN bingo_sessions AS s ON s.session_id = p.session_id").
		Where("p.player_id = ?", playerID)).
		Session(&gorm.Session{})

	if err := query.Count(&p.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Select("p.session_id AS session_id, s.variant AS variant, p.won AS won, s.completed_at AS completed_at").
		Order("s.completed_at desc, p.session_id asc").
		Scopes(Paginate(p)).
		Scan(&rows).Error
	return rows, err
}

// DeleteCompletedBefore 删除早于指定时间结束的会话及其参与者
func (r *bingoSessionRepo) DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		var ids []string
		if err := CompletedBy("status")(tx.Model(&models.BingoSession{})).
			Where("completed_at < ?", before).
			Pluck("session_id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&models.BingoParticipant{}).Error; err != nil {
			return err
		}
		result := tx.Where("session_id IN ?", ids).Delete(&models.BingoSession{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
