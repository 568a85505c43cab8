package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/game/bingo"
	"github.com/wfunc/bingo-game/internal/middleware"
	"go.uber.org/zap"
)

// BingoHandler 宾果游戏处理器
type BingoHandler struct {
	sessions        *game.SessionManager
	defaultInterval time.Duration
	logger          *zap.Logger
}

// NewBingoHandler 创建宾果处理器
func NewBingoHandler(sessions *game.SessionManager, defaultInterval time.Duration, logger *zap.Logger) *BingoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BingoHandler{
		sessions:        sessions,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Variant game.Variant `json:"variant" binding:"required"`
	Config  game.Config  `json:"config"`
}

// SelectCardRequest 选择卡号请求
type SelectCardRequest struct {
	CardNumber int `json:"card_number" binding:"required"`
}

// SubmitWordRequest 提交单词请求
type SubmitWordRequest struct {
	Word string `json:"word" binding:"required"`
}

// MarkNumberRequest 标记号码请求
type MarkNumberRequest struct {
	Number int `json:"number" binding:"required"`
}

// SessionSummary 会话列表项
type SessionSummary struct {
	SessionID   string       `json:"session_id"`
	Variant     game.Variant `json:"variant"`
	Status      game.Status  `json:"status"`
	PlayerCount int          `json:"player_count"`
	Capacity    int          `json:"capacity"`
	Draws       int          `json:"draws"`
	Winners     int          `json:"winners"`
	CreatedAt   time.Time    `json:"created_at"`
}

// CreateSession 创建会话
// @Summary 创建宾果会话
// @Tags Bingo Admin
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "会话配置"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions [post]
func (h *BingoHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	cfg := req.Config
	if cfg.IntervalMs == 0 {
		cfg.IntervalMs = int(h.defaultInterval / time.Millisecond)
	}
	if req.Variant == game.VariantGrid {
		if cfg.Pattern == "" {
			cfg.Pattern = bingo.PatternAnyLine
		}
		if cfg.MarkingMode == "" {
			cfg.MarkingMode = game.MarkingAuto
		}
	}

	s, err := h.sessions.Create(c.Request.Context(), req.Variant, cfg)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, s)
}

// ListSessions 内存中的会话列表
// @Summary 会话列表
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param status query string false "按状态过滤"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/bingo/sessions [get]
func (h *BingoHandler) ListSessions(c *gin.Context) {
	status := game.Status(c.Query("status"))

	summaries := make([]SessionSummary, 0)
	for _, s := range h.sessions.List() {
		if status != "" && s.Status != status {
			continue
		}
		summaries = append(summaries, SessionSummary{
			SessionID:   s.ID,
			Variant:     s.Variant,
			Status:      s.Status,
			PlayerCount: len(s.Roster),
			Capacity:    s.Config.Capacity,
			Draws:       len(s.History),
			Winners:     len(s.Winners),
			CreatedAt:   s.CreatedAt,
		})
	}
	ok(c, summaries)
}

// GetSession 管理员视角的完整会话
// @Summary 会话详情
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id} [get]
func (h *BingoHandler) GetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, s)
}

// Prepare 开放加入
// @Summary 开放加入
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id}/prepare [post]
func (h *BingoHandler) Prepare(c *gin.Context) {
	h.lifecycle(c, h.sessions.Prepare)
}

// Start 开始游戏
// @Summary 开始游戏
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id}/start [post]
func (h *BingoHandler) Start(c *gin.Context) {
	h.lifecycle(c, h.sessions.Start)
}

// Pause 暂停
// @Summary 暂停自动开奖
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id}/pause [post]
func (h *BingoHandler) Pause(c *gin.Context) {
	h.lifecycle(c, h.sessions.Pause)
}

// Resume 恢复
// @Summary 恢复自动开奖
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id}/resume [post]
func (h *BingoHandler) Resume(c *gin.Context) {
	h.lifecycle(c, h.sessions.Resume)
}

// Stop 强制结束
// @Summary 强制结束
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id}/stop [post]
func (h *BingoHandler) Stop(c *gin.Context) {
	h.lifecycle(c, h.sessions.Stop)
}

func (h *BingoHandler) lifecycle(c *gin.Context, op func(ctx context.Context, sessionID string) (*game.Session, error)) {
	s, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, s)
}

// CallNext 手动开出下一个号码或字母
// @Summary 手动开奖
// @Tags Bingo Admin
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 410 {object} errors.ErrorResponse
// @Router /api/v1/admin/bingo/sessions/{id}/call [post]
func (h *BingoHandler) CallNext(c *gin.Context) {
	sessionID := c.Param("id")
	result, err := h.sessions.CallNext(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, err)
		return
	}
	if result.Exhausted {
		h.logger.Info("号码池已耗尽", zap.String("session_id", sessionID))
		fail(c, errors.New(errors.ErrPoolExhausted))
		return
	}
	ok(c, result)
}

// Join 加入会话
// @Summary 加入会话
// @Tags Bingo
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/bingo/sessions/{id}/join [post]
func (h *BingoHandler) Join(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)
	sessionID := c.Param("id")
	s, err := h.sessions.Join(c.Request.Context(), sessionID, playerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, s.ViewFor(playerID))
}

// SelectCard 选择卡号
// @Summary 选择卡号
// @Tags Bingo
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body SelectCardRequest true "卡号"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/bingo/sessions/{id}/card [post]
func (h *BingoHandler) SelectCard(c *gin.Context) {
	var req SelectCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}
	playerID, _ := middleware.GetPlayerID(c)
	card, err := h.sessions.SelectCard(c.Request.Context(), c.Param("id"), playerID, req.CardNumber)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, card)
}

// SubmitWord 提交单词
// @Summary 提交单词
// @Tags Bingo
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body SubmitWordRequest true "单词"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/bingo/sessions/{id}/word [post]
func (h *BingoHandler) SubmitWord(c *gin.Context) {
	var req SubmitWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}
	playerID, _ := middleware.GetPlayerID(c)
	word, err := h.sessions.SubmitWord(c.Request.Context(), c.Param("id"), playerID, req.Word)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, word)
}

// MarkNumber 手动标记
// @Summary 手动标记号码
// @Tags Bingo
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body MarkNumberRequest true "号码"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/bingo/sessions/{id}/mark [post]
func (h *BingoHandler) MarkNumber(c *gin.Context) {
	var req MarkNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}
	playerID, _ := middleware.GetPlayerID(c)
	result, err := h.sessions.MarkNumber(c.Request.Context(), c.Param("id"), playerID, req.Number)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// PlayerView 玩家视角的会话
// @Summary 玩家视角
// @Tags Bingo
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/bingo/sessions/{id} [get]
func (h *BingoHandler) PlayerView(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)
	view, err := h.sessions.PlayerView(c.Request.Context(), c.Param("id"), playerID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

// History 当前玩家的历史记录
// @Summary 历史记录
// @Tags Bingo
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /api/v1/bingo/history [get]
func (h *BingoHandler) History(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)
	entries, err := h.sessions.History(c.Request.Context(), playerID)
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []game.HistoryEntry{}
	}
	ok(c, entries)
}
