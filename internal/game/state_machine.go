package game

import (
	"fmt"
	"sort"

	"github.com/wfunc/bingo-game/internal/errors"
)

// Event 状态机事件
type Event string

const (
	EventPrepare    Event = "prepare"
	EventJoin       Event = "join"
	EventSelectCard Event = "select_card"
	EventSubmitWord Event = "submit_word"
	EventStart      Event = "start"
	EventCall       Event = "call"
	EventMark       Event = "mark"
	EventPause      Event = "pause"
	EventResume     Event = "resume"
	EventComplete   Event = "complete"
	EventStop       Event = "stop"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From  Status
	Event Event
	To    Status
}

// StateMachine 会话状态转换表
// 不改变状态的操作以自环形式登记，用于前置状态检查
type StateMachine struct {
	variant     Variant
	transitions map[string]StateTransition
}

var (
	gridMachine = newStateMachine(VariantGrid)
	wordMachine = newStateMachine(VariantWord)
)

// MachineFor 获取玩法对应的状态机
func MachineFor(variant Variant) *StateMachine {
	if variant == VariantWord {
		return wordMachine
	}
	return gridMachine
}

func newStateMachine(variant Variant) *StateMachine {
	sm := &StateMachine{
		variant:     variant,
		transitions: make(map[string]StateTransition),
	}
	sm.initTransitions()
	return sm
}

// initTransitions 初始化状态转换规则
func (sm *StateMachine) initTransitions() {
	sm.addTransition(StateTransition{From: StatusPreparing, Event: EventPrepare, To: StatusReady})
	sm.addTransition(StateTransition{From: StatusReady, Event: EventJoin, To: StatusReady})

	if sm.variant == VariantGrid {
		sm.addTransition(StateTransition{From: StatusReady, Event: EventSelectCard, To: StatusReady})
		sm.addTransition(StateTransition{From: StatusReady, Event: EventStart, To: StatusActive})

		// 暂停时仍允许手动开奖和标记
		for _, s := range []Status{StatusActive, StatusPaused} {
			sm.addTransition(StateTransition{From: s, Event: EventCall, To: s})
			sm.addTransition(StateTransition{From: s, Event: EventMark, To: s})
			sm.addTransition(StateTransition{From: s, Event: EventComplete, To: StatusCompleted})
		}
		sm.addTransition(StateTransition{From: StatusActive, Event: EventPause, To: StatusPaused})
		sm.addTransition(StateTransition{From: StatusPaused, Event: EventResume, To: StatusActive})
	} else {
		sm.addTransition(StateTransition{From: StatusReady, Event: EventSubmitWord, To: StatusReady})
		sm.addTransition(StateTransition{From: StatusReady, Event: EventStart, To: StatusPlaying})
		sm.addTransition(StateTransition{From: StatusPlaying, Event: EventCall, To: StatusPlaying})
		sm.addTransition(StateTransition{From: StatusPlaying, Event: EventComplete, To: StatusCompleted})
	}

	// 任何非终止状态 -> 强制结束
	live := []Status{StatusPreparing, StatusReady, StatusActive, StatusPaused}
	if sm.variant == VariantWord {
		live = []Status{StatusPreparing, StatusReady, StatusPlaying}
	}
	for _, s := range live {
		sm.addTransition(StateTransition{From: s, Event: EventStop, To: StatusCompleted})
	}
}

// addTransition 添加状态转换
func (sm *StateMachine) addTransition(t StateTransition) {
	sm.transitions[transitionKey(t.From, t.Event)] = t
}

// transitionKey 生成转换键
func transitionKey(status Status, event Event) string {
	return fmt.Sprintf("%s:%s", status, event)
}

// Next 计算事件后的状态，非法转换返回状态错误
func (sm *StateMachine) Next(from Status, event Event) (Status, error) {
	t, ok := sm.transitions[transitionKey(from, event)]
	if !ok {
		return from, errors.Newf(errors.ErrGameStateError, "状态 %s 不允许操作 %s", from, event)
	}
	return t.To, nil
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(from Status, event Event) bool {
	_, ok := sm.transitions[transitionKey(from, event)]
	return ok
}

// ValidEvents 获取状态下的有效事件，按事件名排序
func (sm *StateMachine) ValidEvents(from Status) []Event {
	var events []Event
	for _, t := range sm.transitions {
		if t.From == from {
			events = append(events, t.Event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// fire 在会话上执行事件
func (s *Session) fire(event Event) error {
	next, err := MachineFor(s.Variant).Next(s.Status, event)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}
