package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/bingo-game/internal/logger"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound  = errors.New("客户端未找到")
	ErrSessionNotFound = errors.New("会话没有订阅者")
	ErrSendBufferFull  = errors.New("发送缓冲区已满")
)

// Client WebSocket客户端
type Client struct {
	ID       string          // 客户端ID
	PlayerID string          // 玩家ID，来自令牌或查询参数
	Hub      *Hub            // Hub引用
	Conn     *websocket.Conn // WebSocket连接
	Send     chan []byte     // 发送通道

	mu        sync.RWMutex
	SessionID string // 订阅的会话ID
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, playerID, sessionID string) *Client {
	return &Client{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, hub.cfg.SendBuffer),
		SessionID: sessionID,
	}
}

// Session 当前订阅的会话
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SessionID
}

func (c *Client) setSession(sessionID string) {
	c.mu.Lock()
	c.SessionID = sessionID
	c.mu.Unlock()
}

// ReadPump 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	cfg := c.Hub.cfg
	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	cfg := c.Hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 每条消息单独成帧，客户端可以逐帧解析JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		c.Hub.logger.Warn("无效的WebSocket消息",
			zap.String("client_id", c.ID),
			zap.ByteString("data", data))
		c.SendError("消息格式错误")
		return
	}
	logger.LogWebSocketMessage(c.Hub.logger, "receive", msg.Type, string(msg.Data))

	switch msg.Type {
	case MessageTypePing:
		c.SendMessage(MessageTypePong, nil)
	case MessageTypePong:
	case MessageTypeSubscribe:
		if msg.SessionID == "" {
			c.SendError("session_id 不能为空")
			return
		}
		c.Hub.Subscribe(c, msg.SessionID)
		c.SendMessage(MessageTypeSubscribe, map[string]string{"session_id": msg.SessionID})
	default:
		if c.Hub.handler != nil {
			c.Hub.handler.HandleClientMessage(c, &msg)
			return
		}
		c.SendError("不支持的消息类型: " + msg.Type)
	}
}

// SendError 发送错误消息
func (c *Client) SendError(message string) {
	c.SendMessage(MessageTypeError, map[string]string{"error": message})
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msgType string, data interface{}) error {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}

	logger.LogWebSocketMessage(c.Hub.logger, "send", msgType, data)
	return c.Hub.SendToClient(c.ID, &Message{
		Type:      msgType,
		SessionID: c.Session(),
		PlayerID:  c.PlayerID,
		Data:      raw,
		Timestamp: time.Now().Unix(),
	})
}
