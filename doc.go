// Package hevc is the entropy-decoding core of an HEVC (ITU-T H.265) video
// decoder: the CABAC arithmetic decoding engine, the context model with its
// slice initialization and wavefront snapshots, the syntax element
// decoders, and residual coefficient decoding with dequantization.
//
// A Segment decodes one independent slice segment, tile or wavefront
// substream. The caller walks the coding tree, reads syntax elements
// through Segment.Syntax and hands each coded transform block to
// DecodeResidual, which returns the dequantized 16-bit coefficients ready
// for the inverse transform:
//
//	seg, err := hevc.NewSegment(payload, &hevc.SliceParams{
//		SliceType: hevc.SliceI,
//		QP:        26,
//		Quant:     hevc.QuantConfig{BitDepthLuma: 8, BitDepthChroma: 8, ChromaFormat: hevc.Chroma420},
//	})
//	...
//	n, err := seg.DecodeResidual(&hevc.TransformBlock{Block: hevc.Block{Log2Size: 2}, QPY: 26}, coeffs)
//
// Parameter sets, slice headers, prediction, inverse transforms and loop
// filters are outside this package.
package hevc
