package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"go.uber.org/zap"
)

// 玩家通过连接发起的操作
const (
	MessageTypeMark = "mark"
)

// SessionService 连接处理器依赖的会话操作
type SessionService interface {
	PlayerView(ctx context.Context, sessionID, playerID string) (*game.PlayerView, error)
	MarkNumber(ctx context.Context, sessionID, playerID string, number int) (*game.MarkResult, error)
}

// BingoMessageHandler 宾果客户端消息处理器
type BingoMessageHandler struct {
	sessions SessionService
	timeout  time.Duration
	logger   *zap.Logger
}

// NewBingoMessageHandler 创建消息处理器
func NewBingoMessageHandler(sessions SessionService, logger *zap.Logger) *BingoMessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BingoMessageHandler{
		sessions: sessions,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// HandleClientMessage 处理客户端消息
func (h *BingoMessageHandler) HandleClientMessage(client *Client, msg *Message) {
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = client.Session()
	}
	if sessionID == "" {
		client.SendError("session_id 不能为空")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	switch msg.Type {
	case MessageTypeState:
		view, err := h.sessions.PlayerView(ctx, sessionID, client.PlayerID)
		if err != nil {
			h.replyError(client, msg, err)
			return
		}
		client.SendMessage(MessageTypeState, view)

	case MessageTypeMark:
		var req struct {
			Number int `json:"number"`
		}
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &req) != nil {
			h.replyError(client, msg, errors.New(errors.ErrInvalidParam).WithDetails("mark 需要 {\"number\": n}"))
			return
		}
		result, err := h.sessions.MarkNumber(ctx, sessionID, client.PlayerID, req.Number)
		if err != nil {
			h.replyError(client, msg, err)
			return
		}
		client.SendMessage(MessageTypeMark, result)

	default:
		h.logger.Warn("未知消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		client.SendError("不支持的消息类型: " + msg.Type)
	}
}

func (h *BingoMessageHandler) replyError(client *Client, msg *Message, err error) {
	h.logger.Debug("处理客户端消息失败",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
		zap.Error(err))

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		client.SendMessage(MessageTypeError, map[string]interface{}{
			"error": appErr.Message,
			"code":  appErr.Code,
			"kind":  errors.KindOf(err),
		})
		return
	}
	client.SendError(err.Error())
}
