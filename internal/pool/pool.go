// Package pool provides per-size sync.Pool instances for transform
// coefficient buffers, so that callers decoding many blocks reuse them
// instead of allocating one per block.
package pool

import (
	"fmt"
	"sync"
)

// Supported transform sizes, as log2 of the block side.
const (
	MinLog2Size = 2
	MaxLog2Size = 5
)

// bucketIndex returns the pool index for a transform size.
func bucketIndex(log2Size int) int {
	if log2Size < MinLog2Size || log2Size > MaxLog2Size {
		panic(fmt.Sprintf("pool: unsupported transform size 1<<%d", log2Size))
	}
	return log2Size - MinLog2Size
}

var pools [MaxLog2Size - MinLog2Size + 1]sync.Pool

func init() {
	for i := range pools {
		n := 1 << uint(2*(i+MinLog2Size))
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]int16, n)
				return &b
			},
		}
	}
}

// GetCoeffs returns a zeroed buffer of 1<<(2*log2Size) coefficients. The
// caller should hand it back with PutCoeffs when done.
func GetCoeffs(log2Size int) []int16 {
	bp := pools[bucketIndex(log2Size)].Get().(*[]int16)
	b := *bp
	for i := range b {
		b[i] = 0
	}
	return b
}

// PutCoeffs returns a buffer obtained from GetCoeffs. Buffers whose length
// is not a supported block area are dropped. Each call allocates the
// slice header that the pool stores; the coefficient storage itself is
// reused.
func PutCoeffs(b []int16) {
	b = b[:cap(b)]
	for log2 := MinLog2Size; log2 <= MaxLog2Size; log2++ {
		if len(b) == 1<<uint(2*log2) {
			pools[log2-MinLog2Size].Put(&b)
			return
		}
	}
}
