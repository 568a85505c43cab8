package game

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc 定时开奖回调，返回false时定时器自行取消
type TickFunc func(sessionID string, generation uint64) bool

// AutoCaller 每个会话一个的自动开奖定时器
type AutoCaller struct {
	mu         sync.Mutex
	timers     map[string]*autoTimer
	generation uint64
	tick       TickFunc
	logger     *zap.Logger
}

type autoTimer struct {
	generation uint64
	interval   time.Duration
	stop       chan struct{}
}

// NewAutoCaller 创建自动开奖器
func NewAutoCaller(tick TickFunc, logger *zap.Logger) *AutoCaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoCaller{
		timers: make(map[string]*autoTimer),
		tick:   tick,
		logger: logger,
	}
}

// Start 启动会话定时器，已有的旧定时器先取消
func (a *AutoCaller) Start(sessionID string, interval time.Duration) uint64 {
	a.mu.Lock()
	if old, ok := a.timers[sessionID]; ok {
		close(old.stop)
	}
	a.generation++
	t := &autoTimer{
		generation: a.generation,
		interval:   interval,
		stop:       make(chan struct{}),
	}
	a.timers[sessionID] = t
	a.mu.Unlock()

	a.logger.Debug("启动自动开奖",
		zap.String("session_id", sessionID),
		zap.Uint64("generation", t.generation),
		zap.Duration("interval", interval))

	go a.run(sessionID, t)
	return t.generation
}

// Stop 取消会话定时器，不等待正在执行的回调
func (a *AutoCaller) Stop(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.timers[sessionID]; ok {
		close(t.stop)
		delete(a.timers, sessionID)
		a.logger.Debug("停止自动开奖",
			zap.String("session_id", sessionID),
			zap.Uint64("generation", t.generation))
	}
}

// IsCurrent 定时器代数是否仍然有效
func (a *AutoCaller) IsCurrent(sessionID string, generation uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.timers[sessionID]
	return ok && t.generation == generation
}

// Running 会话是否有运行中的定时器
func (a *AutoCaller) Running(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.timers[sessionID]
	return ok
}

// Count 运行中的定时器数量
func (a *AutoCaller) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

// StopAll 取消全部定时器
func (a *AutoCaller) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, t := range a.timers {
		close(t.stop)
		delete(a.timers, id)
	}
}

func (a *AutoCaller) run(sessionID string, t *autoTimer) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			select {
			case <-t.stop:
				return
			default:
			}
			if !a.tick(sessionID, t.generation) {
				a.release(sessionID, t.generation)
				return
			}
		}
	}
}

// release 回调要求取消时移除本代定时器
func (a *AutoCaller) release(sessionID string, generation uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.timers[sessionID]; ok && t.generation == generation {
		close(t.stop)
		delete(a.timers, sessionID)
	}
}
