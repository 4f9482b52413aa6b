package quant

import "github.com/deepteams/hevc/internal/scan"

// ScalingList is the scaling_list_data of an SPS or PPS. Lists[sizeID]
// [matrixID] holds the coded factors in up-right diagonal order (16 for
// 4x4, 64 for the larger sizes). DC[sizeID-2][matrixID] is the separately
// coded DC factor of the 16x16 and 32x32 lists.
type ScalingList struct {
	Lists [4][6][64]uint8
	DC    [2][6]uint8
}

var defaultIntra8x8 = [64]uint8{
	16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 17, 16, 17, 16, 17, 18,
	17, 18, 18, 17, 18, 21, 19, 20, 21, 20, 19, 21, 24, 22, 22, 24,
	24, 22, 22, 24, 25, 25, 27, 30, 27, 25, 25, 29, 31, 35, 35, 31,
	29, 36, 41, 44, 41, 36, 47, 54, 54, 47, 65, 70, 65, 88, 88, 115,
}

var defaultInter8x8 = [64]uint8{
	16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 17, 17, 17, 17, 17, 18,
	18, 18, 18, 18, 18, 20, 20, 20, 20, 20, 20, 20, 24, 24, 24, 24,
	24, 24, 24, 24, 25, 25, 25, 25, 25, 25, 25, 28, 28, 28, 28, 28,
	28, 33, 33, 33, 33, 33, 41, 41, 41, 41, 54, 54, 54, 71, 71, 91,
}

// DefaultScalingList returns the default lists used when scaling lists are
// enabled but not transmitted.
func DefaultScalingList() *ScalingList {
	sl := &ScalingList{}
	for m := 0; m < 6; m++ {
		for i := 0; i < 16; i++ {
			sl.Lists[0][m][i] = flatFactor
		}
		for sizeID := 1; sizeID < 4; sizeID++ {
			if m < 3 {
				sl.Lists[sizeID][m] = defaultIntra8x8
			} else {
				sl.Lists[sizeID][m] = defaultInter8x8
			}
		}
		sl.DC[0][m] = flatFactor
		sl.DC[1][m] = flatFactor
	}
	return sl
}

// FlatScalingList returns lists with every factor equal to 16.
func FlatScalingList() *ScalingList {
	sl := &ScalingList{}
	for s := range sl.Lists {
		for m := range sl.Lists[s] {
			for i := range sl.Lists[s][m] {
				sl.Lists[s][m][i] = flatFactor
			}
		}
	}
	for s := range sl.DC {
		for m := range sl.DC[s] {
			sl.DC[s][m] = flatFactor
		}
	}
	return sl
}

// Matrices are scaling lists expanded to per-position raster factors,
// indexed [sizeID][matrixID][y<<(sizeID+2) + x].
type Matrices struct {
	factors [4][6][]uint8
}

// NewMatrices expands sl. 8x8 lists are upsampled for 16x16 and 32x32
// with the DC factor placed at (0, 0); 32x32 chroma (4:4:4 only) reuses the
// 16x16 chroma lists.
func NewMatrices(sl *ScalingList) *Matrices {
	mt := &Matrices{}
	diag4 := scan.DiagonalOrder(4)
	diag8 := scan.DiagonalOrder(8)
	for m := 0; m < 6; m++ {
		f := make([]uint8, 16)
		for i, p := range diag4 {
			f[int(p.Y)*4+int(p.X)] = sl.Lists[0][m][i]
		}
		mt.factors[0][m] = f

		mt.factors[1][m] = upsample(sl.Lists[1][m][:], diag8, 8, 1)
		mt.factors[2][m] = upsample(sl.Lists[2][m][:], diag8, 16, 2)
		mt.factors[2][m][0] = sl.DC[0][m]

		if m == 0 || m == 3 {
			mt.factors[3][m] = upsample(sl.Lists[3][m][:], diag8, 32, 4)
			mt.factors[3][m][0] = sl.DC[1][m]
		} else {
			mt.factors[3][m] = upsample(sl.Lists[2][m][:], diag8, 32, 4)
			mt.factors[3][m][0] = sl.DC[0][m]
		}
	}
	return mt
}

func upsample(list []uint8, order []scan.Pos, size, ratio int) []uint8 {
	f := make([]uint8, size*size)
	for i, p := range order {
		for k := 0; k < ratio; k++ {
			for j := 0; j < ratio; j++ {
				y := int(p.Y)*ratio + k
				x := int(p.X)*ratio + j
				f[y*size+x] = list[i]
			}
		}
	}
	return f
}

// Factors returns the raster factors for a transform block.
func (mt *Matrices) Factors(log2Size int, intra bool, cIdx int) []uint8 {
	matrixID := cIdx
	if !intra {
		matrixID += 3
	}
	return mt.factors[log2Size-2][matrixID]
}
