package syntax

import "github.com/deepteams/hevc/internal/ctxtable"

// Inter prediction directions of inter_pred_idc.
const (
	PredL0 = 0
	PredL1 = 1
	PredBi = 2
)

// MergeFlag decodes merge_flag.
func (d *Decoder) MergeFlag() bool {
	return d.flag(ctxtable.MergeFlag, 0)
}

// MergeIdx decodes merge_idx for MaxNumMergeCand candidates.
func (d *Decoder) MergeIdx(maxNumMergeCand int) int {
	if maxNumMergeCand <= 1 || !d.flag(ctxtable.MergeIdx, 0) {
		return 0
	}
	return 1 + d.truncatedBypass(maxNumMergeCand-2)
}

// InterPredIdc decodes inter_pred_idc for a prediction block of nPbW x
// nPbH samples at coding-tree depth ctDepth. 8x4 and 4x8 blocks cannot be
// bi-predicted.
func (d *Decoder) InterPredIdc(nPbW, nPbH, ctDepth int) int {
	if nPbW+nPbH != 12 && d.flag(ctxtable.InterPredIdc, ctDepth) {
		return PredBi
	}
	return d.decision(ctxtable.InterPredIdc, 4)
}

// RefIdx decodes ref_idx_l0 or ref_idx_l1 for numRefIdx active references.
func (d *Decoder) RefIdx(numRefIdx int) int {
	cMax := numRefIdx - 1
	v := 0
	for v < cMax && v < 2 {
		if !d.flag(ctxtable.RefIdx, v) {
			return v
		}
		v++
	}
	return v + d.truncatedBypass(cMax-v)
}

// MVPFlag decodes mvp_l0_flag or mvp_l1_flag.
func (d *Decoder) MVPFlag() int {
	return d.decision(ctxtable.MVPFlag, 0)
}

// RQTRootCBF decodes rqt_root_cbf.
func (d *Decoder) RQTRootCBF() bool {
	return d.flag(ctxtable.RQTRootCBF, 0)
}

// MVD is a decoded motion vector difference.
type MVD struct {
	X, Y int
}

// MVDCoding decodes the mvd_coding structure.
func (d *Decoder) MVDCoding() MVD {
	gt0x := d.flag(ctxtable.AbsMVDGreater0, 0)
	gt0y := d.flag(ctxtable.AbsMVDGreater0, 0)
	gt1x, gt1y := false, false
	if gt0x {
		gt1x = d.flag(ctxtable.AbsMVDGreater1, 0)
	}
	if gt0y {
		gt1y = d.flag(ctxtable.AbsMVDGreater1, 0)
	}
	return MVD{
		X: d.mvdComponent(gt0x, gt1x),
		Y: d.mvdComponent(gt0y, gt1y),
	}
}

func (d *Decoder) mvdComponent(gt0, gt1 bool) int {
	if !gt0 {
		return 0
	}
	v := 1
	if gt1 {
		v = 2 + d.expGolomb(1, "abs_mvd_minus2")
	}
	if d.bd.DecodeBypass() == 1 {
		v = -v
	}
	return v
}
