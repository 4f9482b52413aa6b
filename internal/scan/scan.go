// Package scan provides the coefficient scan orders of transform blocks.
//
// A transform block of size 2^n is split into 4x4 coefficient groups (CGs).
// Both the CGs within the block and the coefficients within a CG are
// visited in one of three orders: up-right diagonal, horizontal or
// vertical. Horizontal and vertical scans exist for 4x4 and 8x8 blocks
// only.
package scan

import "fmt"

// Direction is a scan order.
type Direction uint8

const (
	Diagonal Direction = iota
	Horizontal
	Vertical
)

func (d Direction) String() string {
	switch d {
	case Diagonal:
		return "diagonal"
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Pos is a column/row coordinate.
type Pos struct {
	X, Y uint8
}

// Tables are the scan orders for one transform size and direction. They
// are shared and must not be modified.
type Tables struct {
	Log2Size  int
	Direction Direction

	// Coeff maps a scan index within a CG to the coefficient offset.
	Coeff [16]Pos
	// CoeffIndex is the inverse of Coeff, indexed [y][x].
	CoeffIndex [4][4]uint8

	// CG maps a CG scan index to CG coordinates.
	CG []Pos
	// CGIndex is the inverse of CG, indexed [y][x]; only the top-left
	// (1<<(Log2Size-2)) square is used.
	CGIndex [8][8]uint8
}

// NumCG returns the number of coefficient groups in the block.
func (t *Tables) NumCG() int {
	return len(t.CG)
}

// ScanPos returns the position along the whole-block scan of the
// coefficient at (x, y): 16*CG index + index within the CG.
func (t *Tables) ScanPos(x, y int) int {
	return int(t.CGIndex[y>>2][x>>2])<<4 | int(t.CoeffIndex[y&3][x&3])
}

// tables[log2Size-2][dir]; nil for unsupported combinations.
var tables [4][3]*Tables

func init() {
	for log2 := 2; log2 <= 5; log2++ {
		tables[log2-2][Diagonal] = build(log2, Diagonal)
		if log2 <= 3 {
			tables[log2-2][Horizontal] = build(log2, Horizontal)
			tables[log2-2][Vertical] = build(log2, Vertical)
		}
	}
}

func build(log2 int, dir Direction) *Tables {
	t := &Tables{Log2Size: log2, Direction: dir}
	copy(t.Coeff[:], Order(4, dir))
	for i, p := range t.Coeff {
		t.CoeffIndex[p.Y][p.X] = uint8(i)
	}
	t.CG = Order(1<<uint(log2-2), dir)
	for i, p := range t.CG {
		t.CGIndex[p.Y][p.X] = uint8(i)
	}
	return t
}

// For returns the scan tables for a transform of 1<<log2Size samples per
// side. It panics if log2Size is outside 2..5 or dir is not available for
// that size.
func For(log2Size int, dir Direction) *Tables {
	if log2Size < 2 || log2Size > 5 || dir > Vertical {
		panic(fmt.Sprintf("scan: unsupported transform size 1<<%d (%v)", log2Size, dir))
	}
	t := tables[log2Size-2][dir]
	if t == nil {
		panic(fmt.Sprintf("scan: %v scan not allowed for 1<<%d transforms", dir, log2Size))
	}
	return t
}

// Order returns the blk x blk scan order for dir.
func Order(blk int, dir Direction) []Pos {
	switch dir {
	case Horizontal:
		out := make([]Pos, 0, blk*blk)
		for y := 0; y < blk; y++ {
			for x := 0; x < blk; x++ {
				out = append(out, Pos{uint8(x), uint8(y)})
			}
		}
		return out
	case Vertical:
		out := make([]Pos, 0, blk*blk)
		for x := 0; x < blk; x++ {
			for y := 0; y < blk; y++ {
				out = append(out, Pos{uint8(x), uint8(y)})
			}
		}
		return out
	}
	return DiagonalOrder(blk)
}

// DiagonalOrder returns the up-right diagonal scan of a blk x blk array:
// each anti-diagonal is walked from its bottom-left end.
func DiagonalOrder(blk int) []Pos {
	out := make([]Pos, 0, blk*blk)
	x, y := 0, 0
	for len(out) < blk*blk {
		for y >= 0 {
			if x < blk && y < blk {
				out = append(out, Pos{uint8(x), uint8(y)})
			}
			y--
			x++
		}
		y = x
		x = 0
	}
	return out
}

// DirectionFor selects the scan for an intra-predicted transform block
// from its prediction mode: near-horizontal modes (6..14) scan vertically,
// near-vertical modes (22..30) horizontally. Only 4x4 blocks, 8x8 luma
// blocks and, in 4:4:4, 8x8 chroma blocks use mode-dependent scans; all
// other blocks and inter blocks scan diagonally.
func DirectionFor(log2Size, cIdx int, intra bool, predModeIntra int, chroma444 bool) Direction {
	if !intra {
		return Diagonal
	}
	if log2Size != 2 && !(log2Size == 3 && (cIdx == 0 || chroma444)) {
		return Diagonal
	}
	switch {
	case predModeIntra >= 6 && predModeIntra <= 14:
		return Vertical
	case predModeIntra >= 22 && predModeIntra <= 30:
		return Horizontal
	}
	return Diagonal
}
