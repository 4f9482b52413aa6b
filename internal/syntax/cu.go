package syntax

import "github.com/deepteams/hevc/internal/ctxtable"

// PartMode is the partitioning of a coding unit into prediction units.
type PartMode uint8

const (
	Part2Nx2N PartMode = iota
	Part2NxN
	PartNx2N
	PartNxN
	Part2NxnU
	Part2NxnD
	PartnLx2N
	PartnRx2N
)

var partModeNames = [...]string{"2Nx2N", "2NxN", "Nx2N", "NxN", "2NxnU", "2NxnD", "nLx2N", "nRx2N"}

func (p PartMode) String() string {
	if int(p) < len(partModeNames) {
		return partModeNames[p]
	}
	return "PartMode(?)"
}

// countTrue returns the context increment of a flag whose context counts
// the neighbours for which the predicate holds.
func countTrue(left, above bool) int {
	n := 0
	if left {
		n++
	}
	if above {
		n++
	}
	return n
}

// SplitCUFlag decodes split_cu_flag. leftDeeper and aboveDeeper report
// whether the available neighbour has a coding-tree depth greater than the
// current one.
func (d *Decoder) SplitCUFlag(leftDeeper, aboveDeeper bool) bool {
	return d.flag(ctxtable.SplitCUFlag, countTrue(leftDeeper, aboveDeeper))
}

// CUTransquantBypassFlag decodes cu_transquant_bypass_flag.
func (d *Decoder) CUTransquantBypassFlag() bool {
	return d.flag(ctxtable.CUTransquantBypassFlag, 0)
}

// CUSkipFlag decodes cu_skip_flag. leftSkip and aboveSkip report whether
// the available neighbour is a skipped coding unit.
func (d *Decoder) CUSkipFlag(leftSkip, aboveSkip bool) bool {
	return d.flag(ctxtable.CUSkipFlag, countTrue(leftSkip, aboveSkip))
}

// PredModeFlag decodes pred_mode_flag; true means intra.
func (d *Decoder) PredModeFlag() bool {
	return d.flag(ctxtable.PredModeFlag, 0)
}

// PartMode decodes part_mode for a coding unit of 1<<log2CbSize samples.
// Intra coding units only code it at the minimum size.
func (d *Decoder) PartMode(intra bool, log2CbSize, minLog2CbSize int, ampEnabled bool) PartMode {
	if d.flag(ctxtable.PartMode, 0) {
		return Part2Nx2N
	}
	if log2CbSize == minLog2CbSize {
		if intra {
			return PartNxN
		}
		if d.flag(ctxtable.PartMode, 1) {
			return Part2NxN
		}
		if log2CbSize == 3 {
			return PartNx2N
		}
		if d.flag(ctxtable.PartMode, 2) {
			return PartNx2N
		}
		return PartNxN
	}
	if !ampEnabled {
		if d.flag(ctxtable.PartMode, 1) {
			return Part2NxN
		}
		return PartNx2N
	}
	if d.flag(ctxtable.PartMode, 1) {
		if d.flag(ctxtable.PartMode, 3) {
			return Part2NxN
		}
		if d.bd.DecodeBypass() == 1 {
			return Part2NxnD
		}
		return Part2NxnU
	}
	if d.flag(ctxtable.PartMode, 3) {
		return PartNx2N
	}
	if d.bd.DecodeBypass() == 1 {
		return PartnRx2N
	}
	return PartnLx2N
}

// PCMFlag decodes pcm_flag. After a true result the caller reads the PCM
// samples from the engine's bit reader and restarts the engine.
func (d *Decoder) PCMFlag() bool {
	return d.bd.DecodeTerminate() == 1
}

// PrevIntraLumaPredFlag decodes prev_intra_luma_pred_flag.
func (d *Decoder) PrevIntraLumaPredFlag() bool {
	return d.flag(ctxtable.PrevIntraLumaPredFlag, 0)
}

// MPMIdx decodes mpm_idx.
func (d *Decoder) MPMIdx() int {
	return d.truncatedBypass(2)
}

// RemIntraLumaPredMode decodes rem_intra_luma_pred_mode.
func (d *Decoder) RemIntraLumaPredMode() int {
	return int(d.bd.DecodeBypassBits(5))
}

// IntraChromaPredMode decodes intra_chroma_pred_mode; 4 means derived
// from luma.
func (d *Decoder) IntraChromaPredMode() int {
	if !d.flag(ctxtable.IntraChromaPredMode, 0) {
		return 4
	}
	return int(d.bd.DecodeBypassBits(2))
}

// CUQPDeltaAbs decodes cu_qp_delta_abs: a truncated unary prefix of up to
// five bins followed, for prefix 5, by a 0th-order Exp-Golomb suffix.
func (d *Decoder) CUQPDeltaAbs() int {
	prefix := 0
	inc := 0
	for prefix < 5 && d.flag(ctxtable.CUQPDeltaAbs, inc) {
		prefix++
		inc = 1
	}
	if prefix < 5 {
		return prefix
	}
	return prefix + d.expGolomb(0, "cu_qp_delta_abs")
}

// CUQPDeltaSign decodes cu_qp_delta_sign_flag; 1 means negative.
func (d *Decoder) CUQPDeltaSign() int {
	return d.bd.DecodeBypass()
}

// CUQPDelta decodes cu_qp_delta_abs and, when non-zero, its sign.
func (d *Decoder) CUQPDelta() int {
	v := d.CUQPDeltaAbs()
	if v != 0 && d.CUQPDeltaSign() == 1 {
		v = -v
	}
	return v
}

// CUChromaQPOffsetFlag decodes cu_chroma_qp_offset_flag.
func (d *Decoder) CUChromaQPOffsetFlag() bool {
	return d.flag(ctxtable.CUChromaQPOffsetFlag, 0)
}

// CUChromaQPOffsetIdx decodes cu_chroma_qp_offset_idx for a list of
// listLen entries.
func (d *Decoder) CUChromaQPOffsetIdx(listLen int) int {
	v := 0
	for v < listLen-1 && d.flag(ctxtable.CUChromaQPOffsetIdx, 0) {
		v++
	}
	return v
}

// EndOfSliceSegmentFlag decodes end_of_slice_segment_flag.
func (d *Decoder) EndOfSliceSegmentFlag() bool {
	return d.bd.DecodeTerminate() == 1
}

// EndOfSubsetOneBit decodes end_of_subset_one_bit, which closes a tile or
// a wavefront row.
func (d *Decoder) EndOfSubsetOneBit() bool {
	return d.bd.DecodeTerminate() == 1
}
