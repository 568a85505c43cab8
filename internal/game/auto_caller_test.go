package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickCounter struct {
	mu    sync.Mutex
	ticks map[string][]uint64
	limit int32
	calls int32
}

func (c *tickCounter) tick(sessionID string, generation uint64) bool {
	c.mu.Lock()
	c.ticks[sessionID] = append(c.ticks[sessionID], generation)
	c.mu.Unlock()
	n := atomic.AddInt32(&c.calls, 1)
	return c.limit == 0 || n < c.limit
}

func (c *tickCounter) count(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ticks[sessionID])
}

func TestAutoCaller_TicksUntilStopped(t *testing.T) {
	counter := &tickCounter{ticks: map[string][]uint64{}}
	caller := NewAutoCaller(counter.tick, nil)

	gen := caller.Start("s1", 20*time.Millisecond)
	assert.True(t, caller.IsCurrent("s1", gen))
	assert.True(t, caller.Running("s1"))

	require.Eventually(t, func() bool { return counter.count("s1") >= 3 }, time.Second, 5*time.Millisecond)

	caller.Stop("s1")
	assert.False(t, caller.Running("s1"))
	assert.False(t, caller.IsCurrent("s1", gen))

	stopped := counter.count("s1")
	time.Sleep(80 * time.Millisecond)
	// 停止时可能有一个回调正在执行
	assert.LessOrEqual(t, counter.count("s1"), stopped+1)
}

func TestAutoCaller_RestartBumpsGeneration(t *testing.T) {
	counter := &tickCounter{ticks: map[string][]uint64{}}
	caller := NewAutoCaller(counter.tick, nil)
	defer caller.StopAll()

	first := caller.Start("s1", time.Hour)
	second := caller.Start("s1", time.Hour)

	assert.Greater(t, second, first)
	assert.False(t, caller.IsCurrent("s1", first))
	assert.True(t, caller.IsCurrent("s1", second))
	assert.Equal(t, 1, caller.Count())
}

func TestAutoCaller_ReleasesWhenTickDeclines(t *testing.T) {
	counter := &tickCounter{ticks: map[string][]uint64{}, limit: 2}
	caller := NewAutoCaller(counter.tick, nil)

	caller.Start("s1", 10*time.Millisecond)

	require.Eventually(t, func() bool { return !caller.Running("s1") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, counter.count("s1"))
}

func TestAutoCaller_StopAll(t *testing.T) {
	counter := &tickCounter{ticks: map[string][]uint64{}}
	caller := NewAutoCaller(counter.tick, nil)

	caller.Start("a", time.Hour)
	caller.Start("b", time.Hour)
	assert.Equal(t, 2, caller.Count())

	caller.StopAll()
	assert.Equal(t, 0, caller.Count())

	// 重复停止不会出错
	caller.Stop("a")
	caller.StopAll()
}
