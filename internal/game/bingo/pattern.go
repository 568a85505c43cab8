package bingo

// Pattern 中奖模式
type Pattern string

const (
	PatternAnyLine     Pattern = "any-line"
	PatternHorizontal  Pattern = "horizontal"
	PatternVertical    Pattern = "vertical"
	PatternDiagonal    Pattern = "diagonal"
	PatternFourCorners Pattern = "four-corners"
	PatternFullHouse   Pattern = "full-house"
)

// Patterns 所有支持的中奖模式
var Patterns = []Pattern{
	PatternAnyLine,
	PatternHorizontal,
	PatternVertical,
	PatternDiagonal,
	PatternFourCorners,
	PatternFullHouse,
}

// IsValid 判断模式是否受支持
func (p Pattern) IsValid() bool {
	for _, known := range Patterns {
		if p == known {
			return true
		}
	}
	return false
}

// CheckPattern 判断标记矩阵是否满足中奖模式
func CheckPattern(m Marks, p Pattern) bool {
	switch p {
	case PatternAnyLine:
		return hasRow(m) || hasColumn(m) || hasDiagonal(m)
	case PatternHorizontal:
		return hasRow(m)
	case PatternVertical:
		return hasColumn(m)
	case PatternDiagonal:
		return hasDiagonal(m)
	case PatternFourCorners:
		last := GridSize - 1
		return m[0][0] && m[0][last] && m[last][0] && m[last][last]
	case PatternFullHouse:
		for row := 0; row < GridSize; row++ {
			for col := 0; col < GridSize; col++ {
				if !m[row][col] {
					return false
				}
			}
		}
		return true
	default:
		return false
	}
}

func hasRow(m Marks) bool {
	for row := 0; row < GridSize; row++ {
		full := true
		for col := 0; col < GridSize; col++ {
			if !m[row][col] {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	return false
}

func hasColumn(m Marks) bool {
	for col := 0; col < GridSize; col++ {
		full := true
		for row := 0; row < GridSize; row++ {
			if !m[row][col] {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	return false
}

// hasDiagonal 主对角线(0,0)..(4,4)或副对角线(4,0)..(0,4)
func hasDiagonal(m Marks) bool {
	primary, anti := true, true
	for i := 0; i < GridSize; i++ {
		if !m[i][i] {
			primary = false
		}
		if !m[GridSize-1-i][i] {
			anti = false
		}
	}
	return primary || anti
}
