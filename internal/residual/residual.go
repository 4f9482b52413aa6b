// Package residual decodes the residual_coding syntax of HEVC transform
// blocks and dequantizes the resulting coefficient levels.
//
// Decoding runs in two stages. Parse reads the bins in bitstream order and
// produces signed levels with their block positions; Dequantize scales
// them into the output buffer. Decode chains both.
package residual

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deepteams/hevc/internal/cabac"
	"github.com/deepteams/hevc/internal/ctxtable"
	"github.com/deepteams/hevc/internal/quant"
	"github.com/deepteams/hevc/internal/scan"
)

// Flags are the sequence and picture switches that alter residual coding.
type Flags struct {
	SignDataHiding       bool // sign_data_hiding_enabled_flag
	PersistentRice       bool // persistent_rice_adaptation_enabled_flag
	TransformSkipContext bool // transform_skip_context_enabled_flag
	ImplicitRDPCM        bool // implicit_rdpcm_enabled_flag
}

// Block describes the transform block being decoded.
type Block struct {
	Log2Size      int
	CIdx          int
	ScanDir       scan.Direction
	TransformSkip bool
	Bypass        bool // cu_transquant_bypass_flag
	ExplicitRDPCM bool
	Intra         bool
	IntraPredMode int
}

// Coeff is one significant coefficient.
type Coeff struct {
	X, Y  uint8
	Level int32
}

// RiceState holds the StatCoeff counters of persistent Rice adaptation,
// indexed by 2*luma + (transform skip or bypass). It belongs to a slice
// segment and must be updated in decode order.
type RiceState [4]uint8

// Reset zeroes the counters, as at the start of a slice segment.
func (r *RiceState) Reset() {
	*r = RiceState{}
}

// Decoder decodes transform blocks for one set of Flags. It holds no
// per-block state and may be reused.
type Decoder struct {
	Flags Flags
	log   zerolog.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger that receives malformed-syntax events.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Decoder) { d.log = l }
}

// NewDecoder returns a Decoder for flags.
func NewDecoder(flags Flags, opts ...Option) *Decoder {
	d := &Decoder{Flags: flags, log: zerolog.Nop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode parses one transform block and writes its dequantized levels into
// out, indexed y<<Log2Size + x. out must hold at least 1<<(2*Log2Size)
// entries; positions without a significant coefficient are zeroed. It
// returns the number of significant coefficients.
func (d *Decoder) Decode(bd cabac.BinDecoder, tbl *ctxtable.Table, rice *RiceState, b *Block, p *quant.Params, out []int16) (int, error) {
	var buf [32 * 32]Coeff
	coeffs, err := d.Parse(bd, tbl, rice, b, buf[:0])
	if cause := errors.Cause(err); cause != nil && cause != cabac.ErrMalformedSyntax {
		return 0, err
	}
	out = out[:1<<uint(2*b.Log2Size)]
	for i := range out {
		out[i] = 0
	}
	Dequantize(coeffs, p, out)
	return len(coeffs), err
}

// Dequantize scales coeffs with p into out, indexed y<<p.Log2Size + x.
func Dequantize(coeffs []Coeff, p *quant.Params, out []int16) {
	for _, c := range coeffs {
		x, y := int(c.X), int(c.Y)
		out[y<<uint(p.Log2Size)+x] = p.ScaleAndClip(c.Level, x, y)
	}
}

// Parse decodes the residual_coding structure of b and appends the
// significant coefficients to dst in decode order: coefficient groups from
// the last one to the DC group, and within a group from the highest scan
// position down. Parse panics on an unsupported block size or scan.
func (d *Decoder) Parse(bd cabac.BinDecoder, tbl *ctxtable.Table, rice *RiceState, b *Block, dst []Coeff) ([]Coeff, error) {
	if b.Log2Size < 2 || b.Log2Size > 5 {
		panic(fmt.Sprintf("residual: unsupported transform size 1<<%d", b.Log2Size))
	}
	st := scan.For(b.Log2Size, b.ScanDir)
	luma := b.CIdx == 0
	nCG := 1 << uint(b.Log2Size-2)
	tsOrBypass := b.TransformSkip || b.Bypass
	tsCtx := d.Flags.TransformSkipContext && tsOrBypass
	diag := b.ScanDir == scan.Diagonal

	lastX, lastY := decodeLastPosition(bd, tbl, b.Log2Size, luma)
	if b.ScanDir == scan.Vertical {
		lastX, lastY = lastY, lastX
	}
	lastCG := int(st.CGIndex[lastY>>2][lastX>>2])
	lastSub := int(st.CoeffIndex[lastY&3][lastX&3])

	signsVisible := b.Bypass || b.ExplicitRDPCM ||
		(b.Intra && d.Flags.ImplicitRDPCM && b.TransformSkip &&
			(b.IntraPredMode == 10 || b.IntraPredMode == 26))

	sbType := 0
	if luma {
		sbType = 2
	}
	if tsOrBypass {
		sbType++
	}

	var (
		csbf        [8][8]bool
		greater1Ctx = 1
		malformed   int
	)
	for i := lastCG; i >= 0; i-- {
		xS, yS := int(st.CG[i].X), int(st.CG[i].Y)
		right := xS+1 < nCG && csbf[yS][xS+1]
		below := yS+1 < nCG && csbf[yS+1][xS]

		inferDC := false
		if i < lastCG && i > 0 {
			inc := 0
			if right || below {
				inc = 1
			}
			if !luma {
				inc += 2
			}
			csbf[yS][xS] = bd.DecodeDecision(tbl.Ctx(ctxtable.CodedSubBlockFlag, inc)) == 1
			inferDC = true
		} else {
			csbf[yS][xS] = true
		}
		if !csbf[yS][xS] {
			continue
		}

		prevCsbf := 0
		if right {
			prevCsbf |= 1
		}
		if below {
			prevCsbf |= 2
		}

		// sig holds the significant scan positions of the group in decode
		// order, so sig[0] is the highest.
		var sig [16]uint8
		n := 0
		start := 15
		if i == lastCG {
			sig[0] = uint8(lastSub)
			n = 1
			start = lastSub - 1
		}
		for k := start; k >= 0; k-- {
			if k == 0 && inferDC {
				sig[n] = 0
				n++
				break
			}
			xC := xS<<2 + int(st.Coeff[k].X)
			yC := yS<<2 + int(st.Coeff[k].Y)
			inc := sigCtxInc(xC, yC, prevCsbf, b.Log2Size, luma, tsCtx, diag)
			if bd.DecodeDecision(tbl.Ctx(ctxtable.SigCoeffFlag, inc)) == 1 {
				sig[n] = uint8(k)
				n++
				inferDC = false
			}
		}
		if n == 0 {
			continue
		}

		// Greater-than-one and greater-than-two flags.
		ctxSet := 0
		if i > 0 && luma {
			ctxSet = 2
		}
		if i != lastCG && greater1Ctx == 0 {
			ctxSet++
		}
		greater1Ctx = 1
		var abs [16]int32
		firstG1 := -1
		for m := 0; m < n; m++ {
			abs[m] = 1
			if m >= 8 {
				continue
			}
			inc := ctxSet<<2 + greater1Ctx
			if !luma {
				inc += 16
			}
			if bd.DecodeDecision(tbl.Ctx(ctxtable.CoeffAbsLevelGreater1, inc)) == 1 {
				abs[m] = 2
				greater1Ctx = 0
				if firstG1 < 0 {
					firstG1 = m
				}
			} else if greater1Ctx > 0 && greater1Ctx < 3 {
				greater1Ctx++
			}
		}
		if firstG1 >= 0 {
			inc := ctxSet
			if !luma {
				inc += 4
			}
			abs[firstG1] += int32(bd.DecodeDecision(tbl.Ctx(ctxtable.CoeffAbsLevelGreater2, inc)))
		}

		// Signs, MSB first in decode order. A hidden sign is always the
		// one of the lowest scan position, decoded last.
		hidden := d.Flags.SignDataHiding && !signsVisible && int(sig[0])-int(sig[n-1]) >= 4
		nSigns := n
		if hidden {
			nSigns--
		}
		signs := bd.DecodeBypassBits(nSigns) << uint(32-nSigns)

		// Remaining levels.
		riceParam := 0
		if d.Flags.PersistentRice {
			riceParam = int(rice[sbType] >> 2)
		}
		statUpdated := false
		var sum int64
		for m := 0; m < n; m++ {
			threshold := int32(1)
			if m < 8 {
				threshold = 2
				if m == firstG1 {
					threshold = 3
				}
			}
			if abs[m] == threshold {
				rem, ok := decodeRemaining(bd, riceParam)
				if !ok {
					malformed++
					d.log.Warn().
						Str("element", "coeff_abs_level_remaining").
						Int("rice_param", riceParam).
						Int("cidx", b.CIdx).
						Int("log2_size", b.Log2Size).
						Msg("malformed syntax element, using 0")
				}
				abs[m] += rem
				if int64(abs[m]) > 3<<uint(riceParam) {
					riceParam++
					if !d.Flags.PersistentRice && riceParam > 4 {
						riceParam = 4
					}
				}
				if d.Flags.PersistentRice && !statUpdated {
					updateStat(&rice[sbType], rem)
					statUpdated = true
				}
			}

			level := abs[m]
			if m < nSigns {
				if signs&(1<<31) != 0 {
					level = -level
				}
				signs <<= 1
			}
			if hidden {
				sum += int64(abs[m])
				if m == n-1 && sum&1 == 1 {
					level = -level
				}
			}
			pos := st.Coeff[sig[m]]
			dst = append(dst, Coeff{
				X:     uint8(xS<<2) + pos.X,
				Y:     uint8(yS<<2) + pos.Y,
				Level: level,
			})
		}
	}

	if err := bd.Err(); err != nil {
		return dst, errors.Wrap(err, "residual_coding")
	}
	if malformed > 0 {
		return dst, errors.Wrapf(cabac.ErrMalformedSyntax, "residual_coding: %d coeff_abs_level_remaining values", malformed)
	}
	return dst, nil
}

// updateStat adapts a StatCoeff counter with the first remaining level of
// a coefficient group.
func updateStat(stat *uint8, rem int32) {
	shift := uint(*stat >> 2)
	switch {
	case int64(rem) >= 3<<shift:
		*stat++
	case 2*int64(rem) < 1<<shift && *stat > 0:
		*stat--
	}
}
