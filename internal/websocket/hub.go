package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/bingo-game/internal/game"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，同时作为会话事件的广播出口
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 会话ID到订阅客户端的映射
	sessions   map[string]map[string]*Client
	sessionsMu sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	handler MessageHandler
	cfg     HubConfig
	logger  *zap.Logger
}

// HubConfig 连接参数
type HubConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultHubConfig 默认连接参数
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 8192,
		SendBuffer:     256,
	}
}

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, msg *Message)
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	PlayerID  string          `json:"player_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 系统消息类型，会话事件直接使用通知类型
const (
	MessageTypeConnected = "connected"
	MessageTypeSubscribe = "subscribe"
	MessageTypeState     = "state"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// NewHub 创建Hub
func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultHubConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}

	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMessageHandler 设置客户端消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.handler = handler
}

// Run 运行Hub直到Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop 停止Hub并断开所有客户端
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.SessionID != "" {
		h.subscribe(client, client.SessionID)
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID),
		zap.String("session_id", client.SessionID))

	h.SendToClient(client.ID, &Message{
		Type:      MessageTypeConnected,
		SessionID: client.SessionID,
		PlayerID:  client.PlayerID,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.unsubscribe(client)

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID))
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.sessionsMu.Lock()
	h.sessions = make(map[string]map[string]*Client)
	h.sessionsMu.Unlock()
}

// Subscribe 客户端切换订阅的会话
func (h *Hub) Subscribe(client *Client, sessionID string) {
	h.unsubscribe(client)
	h.subscribe(client, sessionID)
}

func (h *Hub) subscribe(client *Client, sessionID string) {
	h.sessionsMu.Lock()
	defer h.sessionsMu.Unlock()

	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[string]*Client)
		h.sessions[sessionID] = subs
	}
	subs[client.ID] = client
	client.setSession(sessionID)
}

func (h *Hub) unsubscribe(client *Client) {
	sessionID := client.Session()
	if sessionID == "" {
		return
	}

	h.sessionsMu.Lock()
	defer h.sessionsMu.Unlock()

	if subs, ok := h.sessions[sessionID]; ok {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}

// Publish 实现 game.Notifier，把会话事件推送给订阅该会话的客户端
func (h *Hub) Publish(_ context.Context, topic string, n game.Notification) {
	sessionID := strings.TrimPrefix(topic, game.Topic(""))

	data, err := json.Marshal(n.Payload)
	if err != nil {
		h.logger.Error("序列化通知失败",
			zap.String("session_id", sessionID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      string(n.Kind),
		SessionID: sessionID,
		Data:      data,
		Timestamp: n.Timestamp.Unix(),
	}
	h.deliver(sessionID, msg)
}

// deliver 推送会话消息，没有订阅者时静默丢弃
func (h *Hub) deliver(sessionID string, msg *Message) {
	err := h.SendToSession(sessionID, msg)
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		return
	}
	h.logger.Debug("推送会话消息失败",
		zap.String("session_id", sessionID),
		zap.String("type", msg.Type),
		zap.Error(err))
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToSession 发送消息给订阅指定会话的所有客户端
func (h *Hub) SendToSession(sessionID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.sessionsMu.RLock()
	subs := make([]*Client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		subs = append(subs, c)
	}
	h.sessionsMu.RUnlock()

	if len(subs) == 0 {
		return ErrSessionNotFound
	}

	// 持有读锁，防止与注销时关闭通道并发
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for _, client := range subs {
		if _, ok := h.clients[client.ID]; !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("会话客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("session_id", sessionID))
		}
	}
	return nil
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// SubscriberCount 订阅指定会话的连接数
func (h *Hub) SubscriberCount(sessionID string) int {
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()
	return len(h.sessions[sessionID])
}
