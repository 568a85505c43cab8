package game

import (
	"context"
	"sync"
	"time"
)

// NotificationKind 通知类型
type NotificationKind string

const (
	NotifySessionCreated NotificationKind = "session_created"
	NotifySessionReady   NotificationKind = "session_ready"
	NotifyPlayerJoined   NotificationKind = "player_joined"
	NotifyCardSelected   NotificationKind = "card_selected"
	NotifyWordSubmitted  NotificationKind = "word_submitted"
	NotifyGameStarted    NotificationKind = "game_started"
	NotifyGamePaused     NotificationKind = "game_paused"
	NotifyGameResumed    NotificationKind = "game_resumed"
	NotifyNumberCalled   NotificationKind = "number_called"
	NotifyLetterDrawn    NotificationKind = "letter_drawn"
	NotifyNumberMarked   NotificationKind = "number_marked"
	NotifyWinnersFound   NotificationKind = "winners_found"
	NotifyGameCompleted  NotificationKind = "game_completed"
	NotifyGameStopped    NotificationKind = "game_stopped"
)

// Notification 对外广播的会话事件
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	SessionID string           `json:"session_id"`
	Payload   interface{}      `json:"payload,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Notifier 通知发布接口，发布即返回，不关心投递结果
type Notifier interface {
	Publish(ctx context.Context, topic string, n Notification)
}

// Topic 会话的广播主题
func Topic(sessionID string) string {
	return "bingo:" + sessionID
}

// NopNotifier 不做任何事的通知器
type NopNotifier struct{}

// Publish 丢弃通知
func (NopNotifier) Publish(context.Context, string, Notification) {}

// RecordingNotifier 记录所有通知（用于测试和调试）
type RecordingNotifier struct {
	mu      sync.Mutex
	entries []RecordedNotification
}

// RecordedNotification 已记录的通知
type RecordedNotification struct {
	Topic        string
	Notification Notification
}

// Publish 记录通知
func (r *RecordingNotifier) Publish(_ context.Context, topic string, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, RecordedNotification{Topic: topic, Notification: n})
}

// Kinds 已记录通知的类型列表
func (r *RecordingNotifier) Kinds(sessionID string) []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kinds []NotificationKind
	for _, e := range r.entries {
		if e.Notification.SessionID == sessionID {
			kinds = append(kinds, e.Notification.Kind)
		}
	}
	return kinds
}

// Count 指定类型的通知数量
func (r *RecordingNotifier) Count(sessionID string, kind NotificationKind) int {
	n := 0
	for _, k := range r.Kinds(sessionID) {
		if k == kind {
			n++
		}
	}
	return n
}

// Entries 已记录的全部通知
func (r *RecordingNotifier) Entries() []RecordedNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedNotification(nil), r.entries...)
}
