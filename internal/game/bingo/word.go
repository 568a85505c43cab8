package bingo

import (
	"errors"
	"strings"
)

// 单词校验错误
var (
	ErrWordLength       = errors.New("word length mismatch")
	ErrWordNotAlpha     = errors.New("word must contain letters only")
	ErrWordRepeatLetter = errors.New("word must not repeat letters")
)

// NormalizeWord 去除首尾空白并转为大写
func NormalizeWord(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// ValidateWord 校验单词：长度固定、仅字母、无重复字母
// word须已经过NormalizeWord
func ValidateWord(word string, length int) error {
	letters := []rune(word)
	if len(letters) != length {
		return ErrWordLength
	}
	seen := make(map[rune]struct{}, len(letters))
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return ErrWordNotAlpha
		}
		if _, dup := seen[r]; dup {
			return ErrWordRepeatLetter
		}
		seen[r] = struct{}{}
	}
	return nil
}

// WordCompleted 判断单词所有字母是否都已匹配
func WordCompleted(word string, matched []rune) bool {
	have := make(map[rune]struct{}, len(matched))
	for _, r := range matched {
		have[r] = struct{}{}
	}
	for _, r := range word {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}
