package game

import (
	stderrors "errors"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game/bingo"
)

// MarkResult 手动标记结果
type MarkResult struct {
	SessionID string   `json:"session_id"`
	PlayerID  string   `json:"player_id"`
	Number    int      `json:"number"`
	Marked    int      `json:"marked"`
	Winners   []Winner `json:"winners"`
	Completed bool     `json:"completed"`
}

// SelectCard 玩家选择卡号
func (s *Session) SelectCard(playerID string, cardNumber int) (*Card, error) {
	if err := s.require(EventSelectCard); err != nil {
		return nil, err
	}
	if !s.HasPlayer(playerID) {
		return nil, errors.New(errors.ErrPlayerNotJoined, playerID)
	}
	if _, chosen := s.Grid.Cards[playerID]; chosen {
		return nil, errors.New(errors.ErrCardAlreadyChosen, playerID)
	}
	if cardNumber < 1 || cardNumber > s.Grid.PoolSize {
		return nil, errors.Newf(errors.ErrInvalidParam, "卡号必须在 1-%d 之间", s.Grid.PoolSize)
	}
	if err := s.Grid.Assignments.Claim(cardNumber, playerID); err != nil {
		return nil, err
	}

	card := &Card{
		Owner:      playerID,
		CardNumber: cardNumber,
		Grid:       bingo.GenerateCard(cardNumber),
		Marks:      bingo.NewMarks(),
	}
	s.Grid.Cards[playerID] = card
	return card, nil
}

// canStartGrid 人数已满且每人都已选卡
func (s *Session) canStartGrid() error {
	if len(s.Roster) != s.Config.Capacity {
		return errors.Newf(errors.ErrGameStateError, "玩家人数 %d/%d 未满", len(s.Roster), s.Config.Capacity)
	}
	for _, p := range s.Roster {
		if _, ok := s.Grid.Cards[p]; !ok {
			return errors.Newf(errors.ErrGameStateError, "玩家 %s 尚未选择卡片", p)
		}
	}
	return nil
}

// CallNumber 开出下一个号码
func (s *Session) CallNumber(now time.Time) (*DrawResult, error) {
	if err := s.require(EventCall); err != nil {
		return nil, err
	}
	result := &DrawResult{SessionID: s.ID, Winners: []Winner{}}

	number, err := bingo.DrawNumber(s.DrawnNumbers())
	if stderrors.Is(err, bingo.ErrPoolExhausted) {
		if err := s.complete(now); err != nil {
			return nil, err
		}
		result.Exhausted = true
		result.Completed = true
		return result, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "开奖失败")
	}

	s.History = append(s.History, Draw{Number: number, DrawnAt: now})
	s.Grid.Current = number
	result.Number = number

	if s.Config.MarkingMode == MarkingAuto {
		for _, p := range s.Roster {
			if card, ok := s.Grid.Cards[p]; ok {
				card.Marks.Mark(card.Grid, number)
			}
		}
	}

	if err := s.settleGridWinners(now, result); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkNumber 手动标记已开出的号码
func (s *Session) MarkNumber(playerID string, number int, now time.Time) (*MarkResult, error) {
	if err := s.require(EventMark); err != nil {
		return nil, err
	}
	if s.Config.MarkingMode != MarkingManual {
		return nil, errors.New(errors.ErrGameStateError, "当前为自动标记模式")
	}
	card, ok := s.Grid.Cards[playerID]
	if !ok {
		return nil, errors.New(errors.ErrPlayerNotJoined, playerID)
	}
	if number < 1 || number > bingo.MaxNumber {
		return nil, errors.Newf(errors.ErrInvalidParam, "号码必须在 1-%d 之间", bingo.MaxNumber)
	}
	if !s.IsDrawn(number) {
		return nil, errors.Newf(errors.ErrNumberNotDrawn, "号码 %d", number)
	}
	if !card.Grid.Contains(number) {
		return nil, errors.Newf(errors.ErrNumberNotFound, "号码 %d", number)
	}

	result := &MarkResult{
		SessionID: s.ID,
		PlayerID:  playerID,
		Number:    number,
		Marked:    card.Marks.Mark(card.Grid, number),
	}

	draw := &DrawResult{Winners: []Winner{}}
	if err := s.settleGridWinners(now, draw); err != nil {
		return nil, err
	}
	result.Winners = draw.Winners
	result.Completed = draw.Completed
	return result, nil
}

// Pause 暂停自动开奖
func (s *Session) Pause() error {
	return s.fire(EventPause)
}

// Resume 恢复自动开奖
func (s *Session) Resume() error {
	return s.fire(EventResume)
}

// settleGridWinners 检测新的中奖者，有人中奖则结束会话
func (s *Session) settleGridWinners(now time.Time, result *DrawResult) error {
	winners := s.checkGridWinners(now)
	if len(winners) == 0 {
		return nil
	}
	s.Winners = append(s.Winners, winners...)
	result.Winners = winners
	result.Completed = true
	return s.complete(now)
}

// checkGridWinners 按名单顺序检测所有未中奖玩家
func (s *Session) checkGridWinners(now time.Time) []Winner {
	var winners []Winner
	for _, p := range s.Roster {
		card, ok := s.Grid.Cards[p]
		if !ok || s.HasWon(p) {
			continue
		}
		if !bingo.CheckPattern(card.Marks, s.Config.Pattern) {
			continue
		}
		snapshot := *card
		winners = append(winners, Winner{
			PlayerID:    p,
			Pattern:     s.Config.Pattern,
			CompletedAt: now,
			Card:        &snapshot,
		})
	}
	return winners
}
