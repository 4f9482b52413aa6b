package ctxtable

import "strconv"

// Element identifies a context-coded syntax element. Each element owns a
// contiguous run of contexts in the Table.
type Element uint8

const (
	SAOMergeFlag Element = iota
	SAOTypeIdx
	SplitCUFlag
	CUTransquantBypassFlag
	CUSkipFlag
	CUQPDeltaAbs
	PredModeFlag
	PartMode
	PrevIntraLumaPredFlag
	IntraChromaPredMode
	MergeFlag
	MergeIdx
	InterPredIdc
	RefIdx
	MVPFlag
	RQTRootCBF
	SplitTransformFlag
	CBFLuma
	CBFChroma
	AbsMVDGreater0
	AbsMVDGreater1
	TransformSkipFlag
	LastSigCoeffXPrefix
	LastSigCoeffYPrefix
	CodedSubBlockFlag
	SigCoeffFlag
	CoeffAbsLevelGreater1
	CoeffAbsLevelGreater2
	Log2ResScaleAbs
	ResScaleSignFlag
	CUChromaQPOffsetFlag
	CUChromaQPOffsetIdx
	ExplicitRDPCMFlag
	ExplicitRDPCMDir

	NumElements
)

// Context offsets of each element in the flat table.
const (
	offSAOMergeFlag           = 0
	offSAOTypeIdx             = offSAOMergeFlag + 1
	offSplitCUFlag            = offSAOTypeIdx + 1
	offCUTransquantBypassFlag = offSplitCUFlag + 3
	offCUSkipFlag             = offCUTransquantBypassFlag + 1
	offCUQPDeltaAbs           = offCUSkipFlag + 3
	offPredModeFlag           = offCUQPDeltaAbs + 3
	offPartMode               = offPredModeFlag + 1
	offPrevIntraLumaPredFlag  = offPartMode + 4
	offIntraChromaPredMode    = offPrevIntraLumaPredFlag + 1
	offMergeFlag              = offIntraChromaPredMode + 2
	offMergeIdx               = offMergeFlag + 1
	offInterPredIdc           = offMergeIdx + 1
	offRefIdx                 = offInterPredIdc + 5
	offMVPFlag                = offRefIdx + 2
	offRQTRootCBF             = offMVPFlag + 1
	offSplitTransformFlag     = offRQTRootCBF + 1
	offCBFLuma                = offSplitTransformFlag + 3
	offCBFChroma              = offCBFLuma + 2
	offAbsMVDGreater0         = offCBFChroma + 5
	offAbsMVDGreater1         = offAbsMVDGreater0 + 1
	offTransformSkipFlag      = offAbsMVDGreater1 + 1
	offLastSigCoeffXPrefix    = offTransformSkipFlag + 2
	offLastSigCoeffYPrefix    = offLastSigCoeffXPrefix + 18
	offCodedSubBlockFlag      = offLastSigCoeffYPrefix + 18
	offSigCoeffFlag           = offCodedSubBlockFlag + 4
	offCoeffAbsLevelGreater1  = offSigCoeffFlag + 44
	offCoeffAbsLevelGreater2  = offCoeffAbsLevelGreater1 + 24
	offLog2ResScaleAbs        = offCoeffAbsLevelGreater2 + 6
	offResScaleSignFlag       = offLog2ResScaleAbs + 8
	offCUChromaQPOffsetFlag   = offResScaleSignFlag + 2
	offCUChromaQPOffsetIdx    = offCUChromaQPOffsetFlag + 1
	offExplicitRDPCMFlag      = offCUChromaQPOffsetIdx + 1
	offExplicitRDPCMDir       = offExplicitRDPCMFlag + 2

	// NumContexts is the size of the context table.
	NumContexts = offExplicitRDPCMDir + 2
)

// offsets[e] is the first context of e; offsets[e+1]-offsets[e] its count.
var offsets = [NumElements + 1]int{
	offSAOMergeFlag,
	offSAOTypeIdx,
	offSplitCUFlag,
	offCUTransquantBypassFlag,
	offCUSkipFlag,
	offCUQPDeltaAbs,
	offPredModeFlag,
	offPartMode,
	offPrevIntraLumaPredFlag,
	offIntraChromaPredMode,
	offMergeFlag,
	offMergeIdx,
	offInterPredIdc,
	offRefIdx,
	offMVPFlag,
	offRQTRootCBF,
	offSplitTransformFlag,
	offCBFLuma,
	offCBFChroma,
	offAbsMVDGreater0,
	offAbsMVDGreater1,
	offTransformSkipFlag,
	offLastSigCoeffXPrefix,
	offLastSigCoeffYPrefix,
	offCodedSubBlockFlag,
	offSigCoeffFlag,
	offCoeffAbsLevelGreater1,
	offCoeffAbsLevelGreater2,
	offLog2ResScaleAbs,
	offResScaleSignFlag,
	offCUChromaQPOffsetFlag,
	offCUChromaQPOffsetIdx,
	offExplicitRDPCMFlag,
	offExplicitRDPCMDir,
	NumContexts,
}

var elementNames = [NumElements]string{
	"sao_merge_flag",
	"sao_type_idx",
	"split_cu_flag",
	"cu_transquant_bypass_flag",
	"cu_skip_flag",
	"cu_qp_delta_abs",
	"pred_mode_flag",
	"part_mode",
	"prev_intra_luma_pred_flag",
	"intra_chroma_pred_mode",
	"merge_flag",
	"merge_idx",
	"inter_pred_idc",
	"ref_idx",
	"mvp_flag",
	"rqt_root_cbf",
	"split_transform_flag",
	"cbf_luma",
	"cbf_chroma",
	"abs_mvd_greater0_flag",
	"abs_mvd_greater1_flag",
	"transform_skip_flag",
	"last_sig_coeff_x_prefix",
	"last_sig_coeff_y_prefix",
	"coded_sub_block_flag",
	"sig_coeff_flag",
	"coeff_abs_level_greater1_flag",
	"coeff_abs_level_greater2_flag",
	"log2_res_scale_abs_plus1",
	"res_scale_sign_flag",
	"cu_chroma_qp_offset_flag",
	"cu_chroma_qp_offset_idx",
	"explicit_rdpcm_flag",
	"explicit_rdpcm_dir_flag",
}

func (e Element) String() string {
	if e < NumElements {
		return elementNames[e]
	}
	return "Element(" + strconv.Itoa(int(e)) + ")"
}

// Count returns the number of contexts owned by e.
func (e Element) Count() int {
	return offsets[e+1] - offsets[e]
}

// Offset returns the index of e's first context.
func (e Element) Offset() int {
	return offsets[e]
}
