package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/middleware"
	ws "github.com/wfunc/bingo-game/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HubConfig 把WebSocket配置转换为Hub参数
func HubConfig(cfg config.WebSocketConfig) ws.HubConfig {
	return ws.HubConfig{
		WriteWait:      cfg.WriteTimeout,
		PongWait:       cfg.PongTimeout,
		PingPeriod:     cfg.PingInterval,
		MaxMessageSize: cfg.MaxMessageSize,
	}
}

// Connect 建立订阅连接，session_id 可在连接后通过 subscribe 消息切换
func (h *WebSocketHandler) Connect(c *gin.Context) {
	playerID, _ := middleware.GetPlayerID(c)
	sessionID := c.Query("session_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("player_id", playerID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, playerID, sessionID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("player_id", playerID),
		zap.String("session_id", sessionID))
}
