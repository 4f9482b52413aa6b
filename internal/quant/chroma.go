package quant

import "fmt"

// ChromaFormat is chroma_format_idc.
type ChromaFormat uint8

const (
	Chroma400 ChromaFormat = iota
	Chroma420
	Chroma422
	Chroma444
)

func (f ChromaFormat) String() string {
	switch f {
	case Chroma400:
		return "4:0:0"
	case Chroma420:
		return "4:2:0"
	case Chroma422:
		return "4:2:2"
	case Chroma444:
		return "4:4:4"
	}
	return fmt.Sprintf("ChromaFormat(%d)", uint8(f))
}

// qpc420 maps qPi in [30, 43] to QpC for 4:2:0.
var qpc420 = [14]int{29, 30, 31, 32, 33, 33, 34, 34, 35, 35, 36, 36, 37, 37}

// ChromaQP returns Qp'C for a chroma block: the luma QP plus the summed
// chroma offsets, mapped through the 4:2:0 table (or clipped at 51 for the
// other formats), plus the chroma bit-depth offset.
func ChromaQP(qpY, offset int, format ChromaFormat, bitDepthC int) int {
	bdOffset := 6 * (bitDepthC - 8)
	qPi := clip3(-bdOffset, 57, qpY+offset)

	var qpc int
	if format == Chroma420 {
		switch {
		case qPi < 30:
			qpc = qPi
		case qPi > 43:
			qpc = qPi - 6
		default:
			qpc = qpc420[qPi-30]
		}
	} else if qPi > 51 {
		qpc = 51
	} else {
		qpc = qPi
	}
	return qpc + bdOffset
}
