package residual

// ctxIdxMap assigns sig_coeff_flag contexts in 4x4 blocks, indexed
// (yC<<2) + xC.
var ctxIdxMap = [16]uint8{0, 1, 4, 5, 2, 3, 4, 5, 6, 6, 8, 8, 7, 7, 8, 8}

// sigCtxInc returns the sig_coeff_flag context increment for the
// coefficient at block position (xC, yC). prevCsbf has bit 0 set when the
// group to the right is coded and bit 1 when the group below is.
func sigCtxInc(xC, yC, prevCsbf, log2Size int, luma, tsCtx, diag bool) int {
	if tsCtx {
		if luma {
			return 42
		}
		return 27 + 16
	}

	var sigCtx int
	switch {
	case log2Size == 2:
		sigCtx = int(ctxIdxMap[yC<<2+xC])
	case xC+yC == 0:
		sigCtx = 0
	default:
		xP, yP := xC&3, yC&3
		switch prevCsbf {
		case 0:
			switch s := xP + yP; {
			case s == 0:
				sigCtx = 2
			case s < 3:
				sigCtx = 1
			}
		case 1:
			sigCtx = edgeCtx(yP)
		case 2:
			sigCtx = edgeCtx(xP)
		default:
			sigCtx = 2
		}
		if luma {
			if xC>>2+yC>>2 > 0 {
				sigCtx += 3
			}
			switch {
			case log2Size > 3:
				sigCtx += 21
			case diag:
				sigCtx += 9
			default:
				sigCtx += 15
			}
		} else if log2Size == 3 {
			sigCtx += 9
		} else {
			sigCtx += 12
		}
	}
	if luma {
		return sigCtx
	}
	return 27 + sigCtx
}

func edgeCtx(p int) int {
	switch p {
	case 0:
		return 2
	case 1:
		return 1
	}
	return 0
}
