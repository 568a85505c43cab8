package game

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game/bingo"
)

// MinSubmittedWords 开始单词玩法所需的最少单词数
const MinSubmittedWords = 2

// SubmitWord 提交单词，重复提交会替换之前的单词
func (s *Session) SubmitWord(playerID, word string) (*PlayerWord, error) {
	if err := s.require(EventSubmitWord); err != nil {
		return nil, err
	}
	if !s.HasPlayer(playerID) {
		return nil, errors.New(errors.ErrPlayerNotJoined, playerID)
	}

	word = bingo.NormalizeWord(word)
	if err := bingo.ValidateWord(word, s.Config.WordLength); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidWord)
	}
	for owner, pw := range s.Word.Words {
		if owner != playerID && pw.Word == word {
			return nil, errors.New(errors.ErrWordTaken, word)
		}
	}

	pw := &PlayerWord{Owner: playerID, Word: word}
	s.Word.Words[playerID] = pw
	return pw, nil
}

// canStartWord 至少两人提交了单词
func (s *Session) canStartWord() error {
	if len(s.Word.Words) < MinSubmittedWords {
		return errors.Newf(errors.ErrGameStateError, "至少需要 %d 个单词", MinSubmittedWords)
	}
	return nil
}

// resetLetterPool 开始时重置字母池
func (s *Session) resetLetterPool() {
	s.Word.Remaining = bingo.Alphabet
	s.History = []Draw{}
}

// DrawLetter 抽出下一个字母，第一个完成单词的玩家中奖后立即结束
func (s *Session) DrawLetter(now time.Time) (*DrawResult, error) {
	if err := s.require(EventCall); err != nil {
		return nil, err
	}
	result := &DrawResult{SessionID: s.ID, Winners: []Winner{}}

	letter, err := bingo.DrawFrom([]rune(s.Word.Remaining))
	if stderrors.Is(err, bingo.ErrPoolExhausted) {
		if err := s.complete(now); err != nil {
			return nil, err
		}
		result.Exhausted = true
		result.Completed = true
		return result, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "抽取字母失败")
	}

	s.Word.Remaining = strings.ReplaceAll(s.Word.Remaining, string(letter), "")
	s.History = append(s.History, Draw{Letter: string(letter), DrawnAt: now})
	result.Letter = string(letter)

	if winner := s.matchLetter(letter, now); winner != nil {
		s.Winners = append(s.Winners, *winner)
		result.Winners = []Winner{*winner}
		result.Completed = true
		if err := s.complete(now); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// matchLetter 按名单顺序更新命中字母，遇到第一个中奖者即停止
func (s *Session) matchLetter(letter rune, now time.Time) *Winner {
	for _, p := range s.Roster {
		pw, ok := s.Word.Words[p]
		if !ok || pw.Winner || s.HasWon(p) {
			continue
		}
		if !strings.ContainsRune(pw.Word, letter) {
			continue
		}
		if !strings.ContainsRune(pw.Matched, letter) {
			pw.Matched += string(letter)
		}
		if bingo.WordCompleted(pw.Word, []rune(pw.Matched)) {
			pw.Winner = true
			return &Winner{
				PlayerID:    p,
				Word:        pw.Word,
				CompletedAt: now,
				Matched:     pw.Matched,
			}
		}
	}
	return nil
}
