package bingo

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// ErrPoolExhausted 号码池已空
var ErrPoolExhausted = errors.New("draw pool exhausted")

// Alphabet 字母池
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DrawNumber 从1..75中抽取一个未出现在drawn中的号码
// 不修改drawn，由调用方负责追加到历史
func DrawNumber(drawn []int) (int, error) {
	used := make(map[int]struct{}, len(drawn))
	for _, n := range drawn {
		used[n] = struct{}{}
	}

	remaining := make([]int, 0, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		if _, ok := used[n]; !ok {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == 0 {
		return 0, ErrPoolExhausted
	}

	idx, err := randomIndex(len(remaining))
	if err != nil {
		return 0, err
	}
	return remaining[idx], nil
}

// DrawLetter 从A..Z中抽取一个未出现在drawn中的字母
func DrawLetter(drawn []rune) (rune, error) {
	return DrawFrom(RemainingLetters(drawn))
}

// DrawFrom 从给定的剩余字母中随机抽取一个
func DrawFrom(remaining []rune) (rune, error) {
	if len(remaining) == 0 {
		return 0, ErrPoolExhausted
	}
	idx, err := randomIndex(len(remaining))
	if err != nil {
		return 0, err
	}
	return remaining[idx], nil
}

// RemainingLetters 计算字母表相对drawn的补集（按字母顺序）
func RemainingLetters(drawn []rune) []rune {
	used := make(map[rune]struct{}, len(drawn))
	for _, r := range drawn {
		used[r] = struct{}{}
	}
	remaining := make([]rune, 0, len(Alphabet))
	for _, r := range Alphabet {
		if _, ok := used[r]; !ok {
			remaining = append(remaining, r)
		}
	}
	return remaining
}

// randomIndex 使用crypto/rand生成[0,n)的均匀随机数
func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
