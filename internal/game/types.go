package game

import (
	"sort"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game/bingo"
)

// Variant 游戏玩法
type Variant string

const (
	VariantGrid Variant = "grid" // 数字卡片
	VariantWord Variant = "word" // 字母单词
)

// IsValid 检查玩法是否有效
func (v Variant) IsValid() bool {
	return v == VariantGrid || v == VariantWord
}

// Status 会话状态
type Status string

const (
	StatusPreparing Status = "preparing" // 准备中
	StatusReady     Status = "ready"     // 可加入
	StatusActive    Status = "active"    // 进行中（数字玩法）
	StatusPaused    Status = "paused"    // 已暂停（数字玩法）
	StatusPlaying   Status = "playing"   // 进行中（单词玩法）
	StatusCompleted Status = "completed" // 已结束
)

// Advanceable 是否可以自动开奖
func (s Status) Advanceable() bool {
	return s == StatusActive || s == StatusPlaying
}

// Terminal 是否为终止状态
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// MarkingMode 标记模式
type MarkingMode string

const (
	MarkingAuto   MarkingMode = "auto"
	MarkingManual MarkingMode = "manual"
)

// 配置范围
const (
	MinCapacity   = 2
	MaxCapacity   = 50
	MinWordLength = 3
	MaxWordLength = 10
	MinIntervalMs = 1000
	MaxIntervalMs = 10000

	DefaultCardPoolSize = 100
)

// Config 会话配置，创建后不可修改
type Config struct {
	Capacity      int           `json:"capacity"`
	Pattern       bingo.Pattern `json:"pattern,omitempty"`
	MarkingMode   MarkingMode   `json:"marking_mode,omitempty"`
	WordLength    int           `json:"word_length,omitempty"`
	IntervalMs    int           `json:"interval_ms"`
	Cost          int64         `json:"cost"`
	ProfitPercent float64       `json:"profit_percent"`
	EntryFee      int64         `json:"entry_fee"`
}

// Interval 自动开奖间隔
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Validate 按玩法校验配置
func (c Config) Validate(variant Variant) error {
	if !variant.IsValid() {
		return errors.Newf(errors.ErrInvalidParam, "未知玩法: %s", variant)
	}
	if c.Capacity < MinCapacity || c.Capacity > MaxCapacity {
		return errors.Newf(errors.ErrInvalidParam, "玩家人数必须在 %d-%d 之间", MinCapacity, MaxCapacity)
	}
	if c.IntervalMs < MinIntervalMs || c.IntervalMs > MaxIntervalMs {
		return errors.Newf(errors.ErrInvalidParam, "开奖间隔必须在 %d-%d 毫秒之间", MinIntervalMs, MaxIntervalMs)
	}
	if c.Cost < 0 || c.EntryFee < 0 {
		return errors.New(errors.ErrInvalidParam, "费用不能为负数")
	}
	if c.ProfitPercent < 0 || c.ProfitPercent > 100 {
		return errors.New(errors.ErrInvalidParam, "利润比例必须在 0-100 之间")
	}

	switch variant {
	case VariantGrid:
		if !c.Pattern.IsValid() {
			return errors.Newf(errors.ErrInvalidParam, "无效的中奖模式: %s", c.Pattern)
		}
		if c.MarkingMode != MarkingAuto && c.MarkingMode != MarkingManual {
			return errors.Newf(errors.ErrInvalidParam, "无效的标记模式: %s", c.MarkingMode)
		}
	case VariantWord:
		if c.WordLength < MinWordLength || c.WordLength > MaxWordLength {
			return errors.Newf(errors.ErrInvalidParam, "单词长度必须在 %d-%d 之间", MinWordLength, MaxWordLength)
		}
	}
	return nil
}

// Card 玩家卡片
type Card struct {
	Owner      string      `json:"owner"`
	CardNumber int         `json:"card_number"`
	Grid       bingo.Grid  `json:"grid"`
	Marks      bingo.Marks `json:"marks"`
}

// PlayerWord 玩家单词
type PlayerWord struct {
	Owner   string `json:"owner"`
	Word    string `json:"word"`
	Matched string `json:"matched"` // 按命中顺序
	Winner  bool   `json:"winner"`
}

// CardAssignments 卡号 -> 玩家
type CardAssignments map[int]string

// Claim 占用卡号，已被占用时返回冲突
func (a CardAssignments) Claim(cardNumber int, playerID string) error {
	if owner, taken := a[cardNumber]; taken {
		return errors.Newf(errors.ErrCardTaken, "卡号 %d 已被 %s 选择", cardNumber, owner)
	}
	a[cardNumber] = playerID
	return nil
}

// Owner 查询卡号持有者
func (a CardAssignments) Owner(cardNumber int) (string, bool) {
	owner, ok := a[cardNumber]
	return owner, ok
}

// GridState 数字玩法状态
type GridState struct {
	PoolSize    int              `json:"pool_size"`
	Cards       map[string]*Card `json:"cards"`
	Assignments CardAssignments  `json:"assignments"`
	Current     int              `json:"current,omitempty"`
}

// Available 尚未被选择的卡号
func (g *GridState) Available() []int {
	available := make([]int, 0, g.PoolSize)
	for n := 1; n <= g.PoolSize; n++ {
		if _, taken := g.Assignments[n]; !taken {
			available = append(available, n)
		}
	}
	return available
}

// WordState 单词玩法状态
type WordState struct {
	Words     map[string]*PlayerWord `json:"words"`
	Remaining string                 `json:"remaining"`
}

// Draw 开奖记录
type Draw struct {
	Number  int       `json:"number,omitempty"`
	Letter  string    `json:"letter,omitempty"`
	DrawnAt time.Time `json:"drawn_at"`
}

// Winner 中奖记录
type Winner struct {
	PlayerID    string        `json:"player_id"`
	Pattern     bingo.Pattern `json:"pattern,omitempty"`
	Word        string        `json:"word,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
	Card        *Card         `json:"card,omitempty"`
	Matched     string        `json:"matched,omitempty"`
}

// Session 游戏会话
type Session struct {
	ID          string     `json:"id"`
	Variant     Variant    `json:"variant"`
	Config      Config     `json:"config"`
	Status      Status     `json:"status"`
	Roster      []string   `json:"roster"`
	Grid        *GridState `json:"grid,omitempty"`
	Word        *WordState `json:"word,omitempty"`
	History     []Draw     `json:"history"`
	Winners     []Winner   `json:"winners"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewSession 创建会话
func NewSession(id string, variant Variant, cfg Config, now time.Time) *Session {
	s := &Session{
		ID:        id,
		Variant:   variant,
		Config:    cfg,
		Status:    StatusPreparing,
		Roster:    []string{},
		History:   []Draw{},
		Winners:   []Winner{},
		CreatedAt: now,
	}
	switch variant {
	case VariantGrid:
		s.Grid = &GridState{
			Cards:       make(map[string]*Card),
			Assignments: make(CardAssignments),
		}
	case VariantWord:
		s.Word = &WordState{
			Words:     make(map[string]*PlayerWord),
			Remaining: bingo.Alphabet,
		}
	}
	return s
}

// Clone 深拷贝
func (s *Session) Clone() *Session {
	c := *s
	c.Roster = append([]string{}, s.Roster...)
	c.History = append([]Draw{}, s.History...)
	c.Winners = make([]Winner, len(s.Winners))
	for i, w := range s.Winners {
		c.Winners[i] = w
		if w.Card != nil {
			card := *w.Card
			c.Winners[i].Card = &card
		}
	}
	c.StartedAt = cloneTime(s.StartedAt)
	c.CompletedAt = cloneTime(s.CompletedAt)

	if s.Grid != nil {
		g := *s.Grid
		g.Cards = make(map[string]*Card, len(s.Grid.Cards))
		for k, v := range s.Grid.Cards {
			card := *v
			g.Cards[k] = &card
		}
		g.Assignments = make(CardAssignments, len(s.Grid.Assignments))
		for k, v := range s.Grid.Assignments {
			g.Assignments[k] = v
		}
		c.Grid = &g
	}
	if s.Word != nil {
		w := *s.Word
		w.Words = make(map[string]*PlayerWord, len(s.Word.Words))
		for k, v := range s.Word.Words {
			pw := *v
			w.Words[k] = &pw
		}
		c.Word = &w
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// HasPlayer 玩家是否在名单中
func (s *Session) HasPlayer(playerID string) bool {
	for _, p := range s.Roster {
		if p == playerID {
			return true
		}
	}
	return false
}

// HasWon 玩家是否已中奖
func (s *Session) HasWon(playerID string) bool {
	for _, w := range s.Winners {
		if w.PlayerID == playerID {
			return true
		}
	}
	return false
}

// DrawnNumbers 已开出的号码
func (s *Session) DrawnNumbers() []int {
	numbers := make([]int, 0, len(s.History))
	for _, d := range s.History {
		if d.Number > 0 {
			numbers = append(numbers, d.Number)
		}
	}
	return numbers
}

// IsDrawn 号码是否已开出
func (s *Session) IsDrawn(number int) bool {
	for _, d := range s.History {
		if d.Number == number {
			return true
		}
	}
	return false
}

// Participants 参与者与中奖情况
func (s *Session) Participants() map[string]bool {
	result := make(map[string]bool, len(s.Roster))
	for _, p := range s.Roster {
		result[p] = false
	}
	for _, w := range s.Winners {
		result[w.PlayerID] = true
	}
	return result
}

// DrawResult 开奖结果
type DrawResult struct {
	SessionID string   `json:"session_id"`
	Number    int      `json:"number,omitempty"`
	Letter    string   `json:"letter,omitempty"`
	Winners   []Winner `json:"winners"`
	Exhausted bool     `json:"exhausted"`
	Completed bool     `json:"completed"`
}

// PlayerView 玩家视角，只包含本人的卡片或单词
type PlayerView struct {
	SessionID      string      `json:"session_id"`
	Variant        Variant     `json:"variant"`
	Status         Status      `json:"status"`
	Config         Config      `json:"config"`
	PlayerCount    int         `json:"player_count"`
	Joined         bool        `json:"joined"`
	History        []Draw      `json:"history"`
	Current        int         `json:"current,omitempty"`
	Winners        []Winner    `json:"winners"`
	Card           *Card       `json:"card,omitempty"`
	Word           *PlayerWord `json:"word,omitempty"`
	AvailableCards []int       `json:"available_cards,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// ViewFor 生成玩家视角
func (s *Session) ViewFor(playerID string) *PlayerView {
	c := s.Clone()
	view := &PlayerView{
		SessionID:   c.ID,
		Variant:     c.Variant,
		Status:      c.Status,
		Config:      c.Config,
		PlayerCount: len(c.Roster),
		Joined:      c.HasPlayer(playerID),
		History:     c.History,
		Winners:     c.Winners,
		CreatedAt:   c.CreatedAt,
		StartedAt:   c.StartedAt,
		CompletedAt: c.CompletedAt,
	}
	if c.Grid != nil {
		view.Current = c.Grid.Current
		view.Card = c.Grid.Cards[playerID]
		if c.Status == StatusReady {
			view.AvailableCards = c.Grid.Available()
		}
	}
	if c.Word != nil {
		view.Word = c.Word.Words[playerID]
	}
	return view
}

// HistoryEntry 玩家历史记录
type HistoryEntry struct {
	SessionID   string     `json:"session_id"`
	Variant     Variant    `json:"variant"`
	Won         bool       `json:"won"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// sortHistory 按结束时间倒序
func sortHistory(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].CompletedAt, entries[j].CompletedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
}
