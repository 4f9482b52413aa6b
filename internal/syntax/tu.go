package syntax

import "github.com/deepteams/hevc/internal/ctxtable"

func chromaInc(cIdx int) int {
	if cIdx > 0 {
		return 1
	}
	return 0
}

// SplitTransformFlag decodes split_transform_flag for a transform of
// 1<<log2TrafoSize samples.
func (d *Decoder) SplitTransformFlag(log2TrafoSize int) bool {
	return d.flag(ctxtable.SplitTransformFlag, 5-log2TrafoSize)
}

// CBFLuma decodes cbf_luma at transform depth trafoDepth.
func (d *Decoder) CBFLuma(trafoDepth int) bool {
	inc := 0
	if trafoDepth == 0 {
		inc = 1
	}
	return d.flag(ctxtable.CBFLuma, inc)
}

// CBFChroma decodes cbf_cb or cbf_cr at transform depth trafoDepth.
func (d *Decoder) CBFChroma(trafoDepth int) bool {
	return d.flag(ctxtable.CBFChroma, trafoDepth)
}

// TransformSkipFlag decodes transform_skip_flag for component cIdx.
func (d *Decoder) TransformSkipFlag(cIdx int) bool {
	return d.flag(ctxtable.TransformSkipFlag, chromaInc(cIdx))
}

// ExplicitRDPCMFlag decodes explicit_rdpcm_flag for component cIdx.
func (d *Decoder) ExplicitRDPCMFlag(cIdx int) bool {
	return d.flag(ctxtable.ExplicitRDPCMFlag, chromaInc(cIdx))
}

// ExplicitRDPCMDirFlag decodes explicit_rdpcm_dir_flag for component
// cIdx; true means vertical.
func (d *Decoder) ExplicitRDPCMDirFlag(cIdx int) bool {
	return d.flag(ctxtable.ExplicitRDPCMDir, chromaInc(cIdx))
}

// Log2ResScaleAbsPlus1 decodes log2_res_scale_abs_plus1 for chroma
// component c (0 for Cb, 1 for Cr).
func (d *Decoder) Log2ResScaleAbsPlus1(c int) int {
	v := 0
	for v < 4 && d.flag(ctxtable.Log2ResScaleAbs, 4*c+v) {
		v++
	}
	return v
}

// ResScaleSignFlag decodes res_scale_sign_flag for chroma component c.
func (d *Decoder) ResScaleSignFlag(c int) int {
	return d.decision(ctxtable.ResScaleSignFlag, c)
}
