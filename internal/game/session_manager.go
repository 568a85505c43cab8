package game

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/logger"
	"go.uber.org/zap"
)

// SessionManager 宾果会话管理器
// 同一会话的所有写操作在会话锁内串行执行：克隆 -> 修改 -> 保存 -> 提交 -> 通知
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	store     Store
	notifier  Notifier
	caller    *AutoCaller
	recovery  *RecoveryManager
	logger    *zap.Logger
	now       func() time.Time
	poolSize  int
	retention time.Duration
	history   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// sessionEntry 内存中的会话
type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// SessionConfig 会话管理器配置
type SessionConfig struct {
	Store              Store
	Notifier           Notifier
	Logger             *zap.Logger
	CardPoolSize       int
	CompletedRetention time.Duration
	HistoryRetention   time.Duration
	Clock              func() time.Time
}

// mutation 在克隆出的会话上执行修改，返回需要广播的通知
type mutation func(s *Session, now time.Time) ([]Notification, error)

// NewSessionManager 创建会话管理器
func NewSessionManager(config *SessionConfig) *SessionManager {
	zl := config.Logger
	if zl == nil {
		zl = zap.NewNop()
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	poolSize := config.CardPoolSize
	if poolSize <= 0 {
		poolSize = DefaultCardPoolSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		sessions:  make(map[string]*sessionEntry),
		store:     store,
		notifier:  notifier,
		recovery:  NewRecoveryManager(zl, store),
		logger:    zl,
		now:       clock,
		poolSize:  poolSize,
		retention: config.CompletedRetention,
		history:   config.HistoryRetention,
		ctx:       ctx,
		cancel:    cancel,
	}
	m.caller = NewAutoCaller(m.tick, zl)
	return m
}

// Create 创建会话
func (m *SessionManager) Create(ctx context.Context, variant Variant, cfg Config) (*Session, error) {
	if err := cfg.Validate(variant); err != nil {
		return nil, err
	}

	now := m.now()
	s := NewSession(uuid.NewString(), variant, cfg, now)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = &sessionEntry{session: s}
	m.mu.Unlock()

	m.logger.Info("创建宾果会话",
		zap.String("session_id", s.ID),
		zap.String("variant", string(variant)),
		zap.Int("capacity", cfg.Capacity))

	m.publish(ctx, s.ID, now, note(NotifySessionCreated, map[string]interface{}{
		"variant": variant,
		"config":  cfg,
	}))
	return s, nil
}

// Prepare 开放加入
func (m *SessionManager) Prepare(ctx context.Context, sessionID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		if err := s.Prepare(m.poolSize); err != nil {
			return nil, err
		}
		payload := map[string]interface{}{"status": s.Status}
		if s.Grid != nil {
			payload["card_pool_size"] = s.Grid.PoolSize
		}
		return []Notification{note(NotifySessionReady, payload)}, nil
	})
}

// Join 玩家加入
func (m *SessionManager) Join(ctx context.Context, sessionID, playerID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		if err := s.Join(playerID); err != nil {
			return nil, err
		}
		return []Notification{note(NotifyPlayerJoined, map[string]interface{}{
			"player_id":    playerID,
			"player_count": len(s.Roster),
			"capacity":     s.Config.Capacity,
		})}, nil
	})
}

// SelectCard 玩家选择卡号
func (m *SessionManager) SelectCard(ctx context.Context, sessionID, playerID string, cardNumber int) (*Card, error) {
	var card *Card
	_, err := m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		c, err := s.SelectCard(playerID, cardNumber)
		if err != nil {
			return nil, err
		}
		card = c
		return []Notification{note(NotifyCardSelected, map[string]interface{}{
			"player_id":   playerID,
			"card_number": cardNumber,
		})}, nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// SubmitWord 玩家提交单词，通知中不包含单词内容
func (m *SessionManager) SubmitWord(ctx context.Context, sessionID, playerID, word string) (*PlayerWord, error) {
	var submitted *PlayerWord
	_, err := m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		pw, err := s.SubmitWord(playerID, word)
		if err != nil {
			return nil, err
		}
		submitted = pw
		return []Notification{note(NotifyWordSubmitted, map[string]interface{}{
			"player_id":  playerID,
			"word_count": len(s.Word.Words),
		})}, nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// Start 开始游戏并启动自动开奖
func (m *SessionManager) Start(ctx context.Context, sessionID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		if err := s.Start(now); err != nil {
			return nil, err
		}
		return []Notification{note(NotifyGameStarted, map[string]interface{}{
			"status":      s.Status,
			"started_at":  s.StartedAt,
			"interval_ms": s.Config.IntervalMs,
		})}, nil
	})
}

// CallNext 手动开出下一个号码或字母
func (m *SessionManager) CallNext(ctx context.Context, sessionID string) (*DrawResult, error) {
	var result *DrawResult
	if _, err := m.mutate(ctx, sessionID, drawMutation(&result)); err != nil {
		return nil, err
	}
	m.logDraw(result)
	return result, nil
}

// MarkNumber 手动标记号码
func (m *SessionManager) MarkNumber(ctx context.Context, sessionID, playerID string, number int) (*MarkResult, error) {
	var result *MarkResult
	_, err := m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		r, err := s.MarkNumber(playerID, number, now)
		if err != nil {
			return nil, err
		}
		result = r
		notes := []Notification{note(NotifyNumberMarked, map[string]interface{}{
			"player_id": playerID,
			"number":    number,
		})}
		if len(r.Winners) > 0 {
			notes = append(notes, note(NotifyWinnersFound, map[string]interface{}{"winners": r.Winners}))
		}
		if r.Completed {
			notes = append(notes, completedNotification(s, "winner"))
		}
		return notes, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Pause 暂停
func (m *SessionManager) Pause(ctx context.Context, sessionID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		if err := s.Pause(); err != nil {
			return nil, err
		}
		return []Notification{note(NotifyGamePaused, nil)}, nil
	})
}

// Resume 恢复
func (m *SessionManager) Resume(ctx context.Context, sessionID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		if err := s.Resume(); err != nil {
			return nil, err
		}
		return []Notification{note(NotifyGameResumed, map[string]interface{}{
			"interval_ms": s.Config.IntervalMs,
		})}, nil
	})
}

// Stop 管理员强制结束
func (m *SessionManager) Stop(ctx context.Context, sessionID string) (*Session, error) {
	return m.mutate(ctx, sessionID, func(s *Session, now time.Time) ([]Notification, error) {
		if err := s.Stop(now); err != nil {
			return nil, err
		}
		return []Notification{note(NotifyGameStopped, map[string]interface{}{
			"completed_at": s.CompletedAt,
			"winners":      s.Winners,
		})}, nil
	})
}

// Get 获取会话（管理员视角）
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*Session, error) {
	entry, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return entry.snapshot(), nil
}

// PlayerView 玩家视角
func (m *SessionManager) PlayerView(ctx context.Context, sessionID, playerID string) (*PlayerView, error) {
	entry, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return entry.snapshot().ViewFor(playerID), nil
}

// History 玩家参与过的已结束会话
func (m *SessionManager) History(ctx context.Context, playerID string) ([]HistoryEntry, error) {
	return m.store.History(ctx, playerID)
}

// List 内存中的全部会话，按创建时间排序，同一时间按ID排序
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sessions := make([]*Session, 0, len(entries))
	for _, e := range entries {
		sessions = append(sessions, e.snapshot())
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// GetActiveSessions 内存中的会话数
func (m *SessionManager) GetActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Recover 启动时恢复未结束的会话
func (m *SessionManager) Recover(ctx context.Context) (int, error) {
	recovered, err := m.recovery.RecoverSessions(ctx)
	if err != nil {
		return 0, err
	}

	for _, r := range recovered {
		m.mu.Lock()
		if _, exists := m.sessions[r.Session.ID]; exists {
			m.mu.Unlock()
			continue
		}
		m.sessions[r.Session.ID] = &sessionEntry{session: r.Session}
		m.mu.Unlock()

		if r.Action == RecoverResumeTimer {
			m.caller.Start(r.Session.ID, r.Session.Config.Interval())
		}
	}
	return len(recovered), nil
}

// CleanupCompletedSessions 从内存移除结束超过保留时间的会话
func (m *SessionManager) CleanupCompletedSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.sessions {
		s := e.snapshot()
		if !s.Status.Terminal() || s.CompletedAt == nil {
			continue
		}
		if now.Sub(*s.CompletedAt) < m.retention {
			continue
		}
		delete(m.sessions, id)
		removed++

		m.logger.Info("清理已结束会话",
			zap.String("session_id", id),
			zap.Duration("since_completed", now.Sub(*s.CompletedAt)))
	}
	return removed
}

// PurgeHistory 从存储删除结束超过历史保留时间的会话，未配置保留时间时不删除
func (m *SessionManager) PurgeHistory(ctx context.Context) (int64, error) {
	purger, ok := m.store.(Purger)
	if !ok || m.history <= 0 {
		return 0, nil
	}
	n, err := purger.PurgeCompleted(ctx, m.now().Add(-m.history))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("清理历史会话", zap.Int64("count", n), zap.Duration("retention", m.history))
	}
	return n, nil
}

// StartCleanupTask 启动清理任务
func (m *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("停止会话清理任务")
				return
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.CleanupCompletedSessions()
				if _, err := m.PurgeHistory(ctx); err != nil {
					m.logger.Warn("清理历史会话失败", zap.Error(err))
				}
			}
		}
	}()
}

// Shutdown 停止全部定时器
func (m *SessionManager) Shutdown() {
	m.caller.StopAll()
	m.cancel()
	m.logger.Info("会话管理器已关闭")
}

// entry 获取内存中的会话，不在内存时从存储加载
func (m *SessionManager) entry(ctx context.Context, sessionID string) (*sessionEntry, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	s, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[sessionID]; ok {
		return e, nil
	}
	e = &sessionEntry{session: s}
	m.sessions[sessionID] = e
	return e, nil
}

// mutate 在会话锁内执行修改
func (m *SessionManager) mutate(ctx context.Context, sessionID string, fn mutation) (*Session, error) {
	entry, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return m.apply(ctx, entry, fn)
}

// apply 调用方需持有会话锁
// 保存失败时内存状态不变，错误原样返回
func (m *SessionManager) apply(ctx context.Context, entry *sessionEntry, fn mutation) (*Session, error) {
	prev := entry.session
	next := prev.Clone()
	now := m.now()

	notes, err := fn(next, now)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, next); err != nil {
		m.logger.Error("保存会话失败",
			zap.String("session_id", next.ID),
			zap.Int64("version", prev.Version),
			zap.Error(err))
		return nil, err
	}
	entry.session = next

	if prev.Status != next.Status {
		m.logger.Info("会话状态变更",
			zap.String("session_id", next.ID),
			zap.String("from", string(prev.Status)),
			zap.String("to", string(next.Status)))
	}
	m.syncTimer(prev, next)
	m.publish(ctx, next.ID, now, notes...)
	return next, nil
}

// syncTimer 根据状态变化启动或停止自动开奖
func (m *SessionManager) syncTimer(prev, next *Session) {
	switch {
	case next.Status.Advanceable() && !prev.Status.Advanceable():
		m.caller.Start(next.ID, next.Config.Interval())
	case !next.Status.Advanceable():
		m.caller.Stop(next.ID)
	}
}

// tick 自动开奖回调
func (m *SessionManager) tick(sessionID string, generation uint64) bool {
	m.mu.RLock()
	entry, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !m.caller.IsCurrent(sessionID, generation) || !entry.session.Status.Advanceable() {
		return false
	}
	if m.ctx.Err() != nil {
		return false
	}

	var result *DrawResult
	next, err := m.apply(m.ctx, entry, drawMutation(&result))
	if err != nil {
		return m.tickFailed(sessionID, err)
	}
	m.logDraw(result)
	return next.Status.Advanceable()
}

// tickFailed 自动开奖出错后是否继续，可重试的错误保留定时器，严重错误停止
func (m *SessionManager) tickFailed(sessionID string, err error) bool {
	fields := []zap.Field{zap.String("session_id", sessionID), zap.Error(err)}
	if errors.IsCritical(err) && !errors.IsRetryable(err) {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			fields = append(fields, zap.String("stack", appErr.GetStack()))
		}
		m.logger.Error("自动开奖遇到严重错误，停止定时器", fields...)
		return false
	}
	m.logger.Warn("自动开奖失败", append(fields, zap.Bool("retryable", errors.IsRetryable(err)))...)
	return m.ctx.Err() == nil
}

func (m *SessionManager) publish(ctx context.Context, sessionID string, now time.Time, notes ...Notification) {
	for _, n := range notes {
		n.SessionID = sessionID
		n.Timestamp = now
		logger.LogGameEvent(m.logger, string(n.Kind), sessionID, n.Payload)
		m.notifier.Publish(ctx, Topic(sessionID), n)
	}
}

func (m *SessionManager) logDraw(r *DrawResult) {
	if r == nil {
		return
	}
	fields := []zap.Field{
		zap.String("session_id", r.SessionID),
		zap.Int("number", r.Number),
		zap.String("letter", r.Letter),
		zap.Int("winners", len(r.Winners)),
	}
	switch {
	case r.Exhausted:
		m.logger.Info("号码已全部开出，游戏结束", fields...)
	case r.Completed:
		m.logger.Info("产生中奖者，游戏结束", fields...)
	default:
		m.logger.Debug("开奖", fields...)
	}
}

// snapshot 已提交的会话，提交后不会再被修改
func (e *sessionEntry) snapshot() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// drawMutation 按玩法开奖
func drawMutation(out **DrawResult) mutation {
	return func(s *Session, now time.Time) ([]Notification, error) {
		var (
			r   *DrawResult
			err error
		)
		if s.Variant == VariantWord {
			r, err = s.DrawLetter(now)
		} else {
			r, err = s.CallNumber(now)
		}
		if err != nil {
			return nil, err
		}
		*out = r
		return drawNotifications(s, r), nil
	}
}

func drawNotifications(s *Session, r *DrawResult) []Notification {
	var notes []Notification
	if !r.Exhausted {
		if s.Variant == VariantWord {
			notes = append(notes, note(NotifyLetterDrawn, map[string]interface{}{
				"letter": r.Letter,
				"count":  len(s.History),
			}))
		} else {
			notes = append(notes, note(NotifyNumberCalled, map[string]interface{}{
				"number": r.Number,
				"count":  len(s.History),
			}))
		}
	}
	if len(r.Winners) > 0 {
		notes = append(notes, note(NotifyWinnersFound, map[string]interface{}{"winners": r.Winners}))
	}
	if r.Completed {
		reason := "winner"
		if r.Exhausted {
			reason = "exhausted"
		}
		notes = append(notes, completedNotification(s, reason))
	}
	return notes
}

func completedNotification(s *Session, reason string) Notification {
	return note(NotifyGameCompleted, map[string]interface{}{
		"reason":       reason,
		"winners":      s.Winners,
		"completed_at": s.CompletedAt,
	})
}

func note(kind NotificationKind, payload map[string]interface{}) Notification {
	n := Notification{Kind: kind}
	if payload != nil {
		n.Payload = payload
	}
	return n
}
