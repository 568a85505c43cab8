package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/errors"
)

func TestStateMachine_GridTransitions(t *testing.T) {
	sm := MachineFor(VariantGrid)

	tests := []struct {
		from  Status
		event Event
		to    Status
	}{
		{StatusPreparing, EventPrepare, StatusReady},
		{StatusReady, EventJoin, StatusReady},
		{StatusReady, EventSelectCard, StatusReady},
		{StatusReady, EventStart, StatusActive},
		{StatusActive, EventCall, StatusActive},
		{StatusActive, EventMark, StatusActive},
		{StatusActive, EventPause, StatusPaused},
		{StatusPaused, EventCall, StatusPaused},
		{StatusPaused, EventMark, StatusPaused},
		{StatusPaused, EventResume, StatusActive},
		{StatusActive, EventComplete, StatusCompleted},
		{StatusPaused, EventComplete, StatusCompleted},
		{StatusPreparing, EventStop, StatusCompleted},
		{StatusReady, EventStop, StatusCompleted},
		{StatusActive, EventStop, StatusCompleted},
		{StatusPaused, EventStop, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.event), func(t *testing.T) {
			next, err := sm.Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.to, next)
		})
	}
}

func TestStateMachine_WordTransitions(t *testing.T) {
	sm := MachineFor(VariantWord)

	next, err := sm.Next(StatusReady, EventStart)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, next)

	assert.True(t, sm.CanTransition(StatusReady, EventSubmitWord))
	assert.True(t, sm.CanTransition(StatusPlaying, EventCall))
	assert.True(t, sm.CanTransition(StatusPlaying, EventStop))

	// 单词玩法没有暂停、选卡和手动标记
	assert.False(t, sm.CanTransition(StatusPlaying, EventPause))
	assert.False(t, sm.CanTransition(StatusReady, EventSelectCard))
	assert.False(t, sm.CanTransition(StatusPlaying, EventMark))
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	grid := MachineFor(VariantGrid)

	illegal := []struct {
		from  Status
		event Event
	}{
		{StatusPreparing, EventJoin},
		{StatusPreparing, EventStart},
		{StatusReady, EventCall},
		{StatusReady, EventPause},
		{StatusActive, EventJoin},
		{StatusActive, EventResume},
		{StatusPaused, EventPause},
		{StatusCompleted, EventStop},
		{StatusCompleted, EventCall},
		{StatusReady, EventSubmitWord},
	}

	for _, tt := range illegal {
		next, err := grid.Next(tt.from, tt.event)
		require.Error(t, err, "%s:%s", tt.from, tt.event)
		assert.Equal(t, tt.from, next)
		assert.True(t, errors.Is(err, errors.ErrGameStateError))
		assert.Equal(t, errors.KindInvalidState, errors.KindOf(err))
	}
}

func TestStateMachine_TerminalHasNoEvents(t *testing.T) {
	assert.Empty(t, MachineFor(VariantGrid).ValidEvents(StatusCompleted))
	assert.Empty(t, MachineFor(VariantWord).ValidEvents(StatusCompleted))

	assert.Equal(t,
		[]Event{EventPrepare, EventStop},
		MachineFor(VariantGrid).ValidEvents(StatusPreparing))
}

func TestStateMachine_ValidEventsSorted(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Equal(t,
			[]Event{EventCall, EventComplete, EventMark, EventPause, EventStop},
			MachineFor(VariantGrid).ValidEvents(StatusActive))
		assert.Equal(t,
			[]Event{EventJoin, EventStart, EventStop, EventSubmitWord},
			MachineFor(VariantWord).ValidEvents(StatusReady))
	}
}

func TestStatus_Advanceable(t *testing.T) {
	assert.True(t, StatusActive.Advanceable())
	assert.True(t, StatusPlaying.Advanceable())
	assert.False(t, StatusPaused.Advanceable())
	assert.False(t, StatusReady.Advanceable())
	assert.False(t, StatusCompleted.Advanceable())
	assert.True(t, StatusCompleted.Terminal())
}
