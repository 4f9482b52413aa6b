// Package quant derives the per-transform-block dequantization parameters
// and scales decoded coefficient levels.
package quant

import "math"

// levelScale is the scale for QP%6.
var levelScale = [6]int32{40, 45, 51, 57, 64, 72}

// flatFactor is the scaling factor used when no scaling list applies.
const flatFactor = 16

// LevelScale returns levelScale[qp%6] << (qp/6) for qp >= 0.
func LevelScale(qp int) int32 {
	return levelScale[qp%6] << uint(qp/6)
}

// Config holds the sequence and picture state that the dequantization of
// every block in a slice depends on.
type Config struct {
	BitDepthLuma      int
	BitDepthChroma    int
	ChromaFormat      ChromaFormat
	// ExtendedPrecision widens the coefficient range used in the
	// dequantization shift to BitDepth+6 bits. It changes nothing else:
	// scaled coefficients are still clamped to 16 bits and
	// coeff_abs_level_remaining keeps its 16-bit binarization.
	ExtendedPrecision bool

	// Scaling is nil when scaling lists are disabled.
	Scaling *Matrices

	// Combined PPS and slice chroma QP offsets.
	CbQPOffset int
	CrQPOffset int
}

// Block describes one transform block for parameter derivation.
type Block struct {
	QPY           int // luma QP of the coding unit, without bit-depth offset
	CIdx          int // 0 luma, 1 Cb, 2 Cr
	Log2Size      int
	Intra         bool
	TransformSkip bool
	Bypass        bool

	// CU-level chroma QP offsets (cu_chroma_qp_offset_idx selection).
	CUQPOffsetCb int
	CUQPOffsetCr int
}

// Params are the dequantization parameters of one transform block.
type Params struct {
	QP       int // Qp' including the bit-depth offset
	Shift    int
	Add      int64
	Scale    int32
	Log2Size int
	Bypass   bool

	matrix []uint8 // raster factors, nil when flat
}

// Derive computes the parameters of block b.
func (c *Config) Derive(b Block) Params {
	bitDepth := c.BitDepthLuma
	qp := b.QPY + 6*(c.BitDepthLuma-8)
	if b.CIdx > 0 {
		bitDepth = c.BitDepthChroma
		off := c.CbQPOffset + b.CUQPOffsetCb
		if b.CIdx == 2 {
			off = c.CrQPOffset + b.CUQPOffsetCr
		}
		qp = ChromaQP(b.QPY, off, c.ChromaFormat, c.BitDepthChroma)
	}

	rangeBits := 15
	if c.ExtendedPrecision && bitDepth+6 > rangeBits {
		rangeBits = bitDepth + 6
	}
	shift := bitDepth + b.Log2Size + 10 - rangeBits

	p := Params{
		QP:       qp,
		Shift:    shift,
		Scale:    LevelScale(qp),
		Log2Size: b.Log2Size,
		Bypass:   b.Bypass,
	}
	if shift > 0 {
		p.Add = 1 << uint(shift-1)
	}
	if c.Scaling != nil && !(b.TransformSkip && b.Log2Size > 2) {
		p.matrix = c.Scaling.Factors(b.Log2Size, b.Intra, b.CIdx)
	}
	return p
}

// MatrixScale returns the scaling factor at (x, y).
func (p *Params) MatrixScale(x, y int) int32 {
	if p.matrix == nil {
		return flatFactor
	}
	return int32(p.matrix[y<<uint(p.Log2Size)+x])
}

// DCScale returns the scaling factor of the block's DC position.
func (p *Params) DCScale() int32 {
	return p.MatrixScale(0, 0)
}

// Flat reports whether every position uses the flat factor.
func (p *Params) Flat() bool {
	return p.matrix == nil
}

// ScaleAndClip dequantizes level at (x, y). Bypass blocks keep the level
// unscaled, clamped to 16 bits.
func (p *Params) ScaleAndClip(level int32, x, y int) int16 {
	if p.Bypass {
		return clip16(int64(level))
	}
	return ScaleAndClip(level, p.Scale, p.MatrixScale(x, y), p.Shift, p.Add)
}

// ScaleAndClip returns (level*scale*m + add) >> shift clamped to the
// signed 16-bit range.
func ScaleAndClip(level, scale, m int32, shift int, add int64) int16 {
	v := int64(level) * int64(scale) * int64(m)
	if shift > 0 {
		v = (v + add) >> uint(shift)
	} else {
		v <<= uint(-shift)
	}
	return clip16(v)
}

func clip16(v int64) int16 {
	if v < math.MinInt16 {
		return math.MinInt16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

func clip3(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
