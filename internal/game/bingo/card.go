package bingo

// 卡片尺寸与号码范围
const (
	GridSize    = 5
	ColumnSpan  = 15
	MaxNumber   = GridSize * ColumnSpan // 75
	FreeCell    = 0                     // 中心免费格标记值
	centerIndex = GridSize / 2

	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// Grid 5x5号码网格，Grid[row][col]
type Grid [GridSize][GridSize]int

// Marks 5x5标记矩阵
type Marks [GridSize][GridSize]bool

// lcg 32位线性同余生成器
// 卡片布局只要求可复现，任何平台同一种子都得到同一序列
type lcg struct {
	state uint32
}

func (g *lcg) next() uint32 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// columnSeed 由卡号和列号导出列种子
func columnSeed(cardNumber, col int) uint32 {
	return uint32(cardNumber)*2654435761 + uint32(col+1)*40503
}

// GenerateCard 根据卡号生成确定性的5x5卡片
// 第c列取自[15c+1, 15c+15]，中心格固定为FreeCell
func GenerateCard(cardNumber int) Grid {
	var grid Grid

	for col := 0; col < GridSize; col++ {
		candidates := make([]int, ColumnSpan)
		for i := range candidates {
			candidates[i] = col*ColumnSpan + i + 1
		}

		// Fisher–Yates洗牌
		rng := &lcg{state: columnSeed(cardNumber, col)}
		for i := len(candidates) - 1; i > 0; i-- {
			j := int(rng.next() % uint32(i+1))
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}

		for row := 0; row < GridSize; row++ {
			grid[row][col] = candidates[row]
		}
	}

	grid[centerIndex][centerIndex] = FreeCell
	return grid
}

// NewMarks 创建初始标记矩阵，中心格永久标记
func NewMarks() Marks {
	var m Marks
	m[centerIndex][centerIndex] = true
	return m
}

// Contains 判断网格是否包含号码
func (g Grid) Contains(number int) bool {
	if number == FreeCell {
		return false
	}
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if g[row][col] == number {
				return true
			}
		}
	}
	return false
}

// Mark 在标记矩阵上标记网格中所有等于number的格子，返回标记的格子数
func (m *Marks) Mark(g Grid, number int) int {
	if number == FreeCell {
		return 0
	}
	marked := 0
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if g[row][col] == number {
				m[row][col] = true
				marked++
			}
		}
	}
	return marked
}

// ColumnRange 返回第col列的号码范围
func ColumnRange(col int) (lo, hi int) {
	return col*ColumnSpan + 1, col*ColumnSpan + ColumnSpan
}
