package hevc

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deepteams/hevc/internal/cabac"
	"github.com/deepteams/hevc/internal/ctxtable"
	"github.com/deepteams/hevc/internal/metrics"
	"github.com/deepteams/hevc/internal/quant"
	"github.com/deepteams/hevc/internal/residual"
	"github.com/deepteams/hevc/internal/scan"
	"github.com/deepteams/hevc/internal/syntax"
)

// Errors returned by the decoder.
var (
	// ErrStreamExhausted reports that the engine ran past the end of a
	// segment payload. The segment cannot be decoded further.
	ErrStreamExhausted = cabac.ErrStreamExhausted

	// ErrMalformedSyntax reports a structurally impossible value that was
	// replaced by 0. Decoding may continue.
	ErrMalformedSyntax = cabac.ErrMalformedSyntax

	ErrInvalidParams = errors.New("hevc: invalid slice parameters")
)

// SliceType is the slice_type of a slice segment.
type SliceType = ctxtable.SliceType

const (
	SliceB = ctxtable.SliceB
	SliceP = ctxtable.SliceP
	SliceI = ctxtable.SliceI
)

// ChromaFormat is chroma_format_idc.
type ChromaFormat = quant.ChromaFormat

const (
	Chroma400 = quant.Chroma400
	Chroma420 = quant.Chroma420
	Chroma422 = quant.Chroma422
	Chroma444 = quant.Chroma444
)

// ScanDirection is the coefficient scan order of a transform block.
type ScanDirection = scan.Direction

const (
	ScanDiagonal   = scan.Diagonal
	ScanHorizontal = scan.Horizontal
	ScanVertical   = scan.Vertical
)

type (
	// QuantConfig holds the sequence and picture parameters of
	// dequantization.
	QuantConfig = quant.Config

	// QuantParams are the derived dequantization parameters of one block.
	QuantParams = quant.Params

	// ScalingList is a decoded scaling_list_data structure.
	ScalingList = quant.ScalingList

	// ScalingMatrices are scaling lists expanded to per-size factors.
	ScalingMatrices = quant.Matrices

	// Block describes the residual coding of one transform block.
	Block = residual.Block

	// Syntax decodes the syntax elements of a segment.
	Syntax = syntax.Decoder

	// Metrics are the Prometheus collectors updated while decoding.
	Metrics = metrics.Metrics
)

// NewScalingMatrices expands sl into per-size factor tables.
func NewScalingMatrices(sl *ScalingList) *ScalingMatrices {
	return quant.NewMatrices(sl)
}

// DefaultScalingList returns the default scaling lists.
func DefaultScalingList() *ScalingList {
	return quant.DefaultScalingList()
}

// ScanDirectionFor selects the scan of a transform block from its size,
// colour component and intra prediction mode.
func ScanDirectionFor(log2Size, cIdx int, intra bool, predModeIntra int, format ChromaFormat) ScanDirection {
	return scan.DirectionFor(log2Size, cIdx, intra, predModeIntra, format == Chroma444)
}

// NewMetrics creates the decode collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// SliceParams are the slice-level inputs of the entropy decoder.
type SliceParams struct {
	SliceType     SliceType
	CABACInitFlag bool // cabac_init_flag
	QP            int  // SliceQpY

	SignDataHiding       bool // sign_data_hiding_enabled_flag
	PersistentRice       bool // persistent_rice_adaptation_enabled_flag
	TransformSkipContext bool // transform_skip_context_enabled_flag
	ImplicitRDPCM        bool // implicit_rdpcm_enabled_flag

	Quant QuantConfig
}

// Validate reports whether p describes a decodable slice.
func (p *SliceParams) Validate() error {
	switch {
	case p.SliceType > SliceI:
		return errors.Wrapf(ErrInvalidParams, "slice type %d", p.SliceType)
	case p.Quant.BitDepthLuma < 8 || p.Quant.BitDepthLuma > 16:
		return errors.Wrapf(ErrInvalidParams, "luma bit depth %d", p.Quant.BitDepthLuma)
	case p.Quant.BitDepthChroma < 8 || p.Quant.BitDepthChroma > 16:
		return errors.Wrapf(ErrInvalidParams, "chroma bit depth %d", p.Quant.BitDepthChroma)
	case p.Quant.ChromaFormat > Chroma444:
		return errors.Wrapf(ErrInvalidParams, "chroma format %d", p.Quant.ChromaFormat)
	}
	minQP := -6 * (p.Quant.BitDepthLuma - 8)
	if p.QP < minQP || p.QP > ctxtable.MaxSliceQP {
		return errors.Wrapf(ErrInvalidParams, "slice QP %d outside [%d, %d]", p.QP, minQP, ctxtable.MaxSliceQP)
	}
	return nil
}

func (p *SliceParams) initType() ctxtable.InitType {
	return ctxtable.InitTypeFor(p.SliceType, p.CABACInitFlag)
}

func (p *SliceParams) flags() residual.Flags {
	return residual.Flags{
		SignDataHiding:       p.SignDataHiding,
		PersistentRice:       p.PersistentRice,
		TransformSkipContext: p.TransformSkipContext,
		ImplicitRDPCM:        p.ImplicitRDPCM,
	}
}

// TransformBlock is a transform block together with the QP inputs of its
// coding unit.
type TransformBlock struct {
	Block

	QPY int // QpY of the coding unit

	// CU chroma QP offsets selected by cu_chroma_qp_offset_idx.
	CUQPOffsetCb int
	CUQPOffsetCr int
}

func (tb *TransformBlock) quantBlock() quant.Block {
	return quant.Block{
		QPY:           tb.QPY,
		CIdx:          tb.CIdx,
		Log2Size:      tb.Log2Size,
		Intra:         tb.Intra,
		TransformSkip: tb.TransformSkip,
		Bypass:        tb.Bypass,
		CUQPOffsetCb:  tb.CUQPOffsetCb,
		CUQPOffsetCr:  tb.CUQPOffsetCr,
	}
}
