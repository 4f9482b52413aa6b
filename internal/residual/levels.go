package residual

import (
	"github.com/deepteams/hevc/internal/cabac"
	"github.com/deepteams/hevc/internal/ctxtable"
)

const (
	// maxRemainingPrefix is the unary prefix length of
	// coeff_abs_level_remaining that marks a malformed value.
	maxRemainingPrefix = 31
	// maxRemainingSuffix bounds the suffix length of
	// coeff_abs_level_remaining for 16-bit coefficients.
	maxRemainingSuffix = 22
)

// decodeLastPosition decodes last_sig_coeff_{x,y}_{prefix,suffix} and
// returns the column and row in scan orientation (before the vertical-scan
// swap).
func decodeLastPosition(bd cabac.BinDecoder, tbl *ctxtable.Table, log2Size int, luma bool) (x, y int) {
	offset, shift := 15, log2Size-2
	if luma {
		offset = 3*(log2Size-2) + (log2Size-1)>>2
		shift = (log2Size + 1) >> 2
	}
	maxBins := 2*log2Size - 1
	px := decodeLastPrefix(bd, tbl, ctxtable.LastSigCoeffXPrefix, offset, shift, maxBins)
	py := decodeLastPrefix(bd, tbl, ctxtable.LastSigCoeffYPrefix, offset, shift, maxBins)
	return lastValue(bd, px), lastValue(bd, py)
}

func decodeLastPrefix(bd cabac.BinDecoder, tbl *ctxtable.Table, e ctxtable.Element, offset, shift, maxBins int) int {
	i := 0
	for i < maxBins && bd.DecodeDecision(tbl.Ctx(e, offset+i>>uint(shift))) == 1 {
		i++
	}
	return i
}

// lastValue turns a last-position prefix into a coordinate, reading the
// bypass suffix for prefixes above 3.
func lastValue(bd cabac.BinDecoder, prefix int) int {
	if prefix <= 3 {
		return prefix
	}
	n := prefix>>1 - 1
	return 1<<uint(n)*(2+prefix&1) + int(bd.DecodeBypassBits(n))
}

// decodeRemaining decodes coeff_abs_level_remaining with Rice parameter
// rice: a unary prefix, then either a Rice code (prefix < 3) or an
// Exp-Golomb-style escape. It returns ok == false, with value 0, when the
// prefix reaches maxRemainingPrefix or the suffix would exceed
// maxRemainingSuffix bits.
func decodeRemaining(bd cabac.BinDecoder, rice int) (v int32, ok bool) {
	prefix := 0
	for prefix < maxRemainingPrefix && bd.DecodeBypass() == 1 {
		prefix++
	}
	if prefix == maxRemainingPrefix {
		return 0, false
	}
	if prefix < 3 {
		if rice > maxRemainingSuffix {
			return 0, false
		}
		return int32(prefix<<uint(rice)) + int32(bd.DecodeBypassBits(rice)), true
	}
	n := prefix - 3 + rice
	if n > maxRemainingSuffix {
		return 0, false
	}
	return int32((1<<uint(prefix-3)+2)<<uint(rice)) + int32(bd.DecodeBypassBits(n)), true
}
