package syntax

import "github.com/deepteams/hevc/internal/ctxtable"

// SAO types of sao_type_idx_luma / sao_type_idx_chroma.
const (
	SAONotApplied = 0
	SAOBand       = 1
	SAOEdge       = 2
)

// SAOMergeFlag decodes sao_merge_left_flag or sao_merge_up_flag.
func (d *Decoder) SAOMergeFlag() bool {
	return d.flag(ctxtable.SAOMergeFlag, 0)
}

// SAOTypeIdx decodes sao_type_idx_luma or sao_type_idx_chroma.
func (d *Decoder) SAOTypeIdx() int {
	if !d.flag(ctxtable.SAOTypeIdx, 0) {
		return SAONotApplied
	}
	if d.bd.DecodeBypass() == 0 {
		return SAOBand
	}
	return SAOEdge
}

// SAOOffsetAbs decodes sao_offset_abs for a component of the given bit
// depth.
func (d *Decoder) SAOOffsetAbs(bitDepth int) int {
	if bitDepth > 10 {
		bitDepth = 10
	}
	return d.truncatedBypass(1<<uint(bitDepth-5) - 1)
}

// SAOOffsetSign decodes sao_offset_sign; 1 means negative.
func (d *Decoder) SAOOffsetSign() int {
	return d.bd.DecodeBypass()
}

// SAOBandPosition decodes sao_band_position.
func (d *Decoder) SAOBandPosition() int {
	return int(d.bd.DecodeBypassBits(5))
}

// SAOEOClass decodes sao_eo_class_luma or sao_eo_class_chroma.
func (d *Decoder) SAOEOClass() int {
	return int(d.bd.DecodeBypassBits(2))
}
