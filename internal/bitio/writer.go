package bitio

import "encoding/binary"

const (
	// flushBits is the number of bits flushed at a time.
	flushBits = 32
	// flushBytes is the number of bytes written per flush.
	flushBytes = 4
)

// Writer is an MSB-first accumulator-based bit writer.
//
// Bits are accumulated in a 64-bit register and flushed 32 bits (4 bytes)
// at a time in big-endian byte order, which is the format Reader expects.
type Writer struct {
	bits uint64 // bit accumulator, right-aligned
	used int    // number of bits used in accumulator
	buf  []byte // output buffer
	cur  int    // current write position in buf
}

// NewWriter creates a Writer with an initial buffer pre-allocated for
// expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	if expectedSize < 256 {
		expectedSize = 256
	}
	return &Writer{
		buf: make([]byte, expectedSize),
	}
}

// WriteBits writes the low nBits (0..32) of v, most significant first.
func (bw *Writer) WriteBits(v uint32, nBits int) {
	if nBits == 0 {
		return
	}
	if bw.used >= flushBits {
		bw.flush()
	}
	bw.bits = bw.bits<<uint(nBits) | uint64(v&(1<<uint(nBits)-1))
	bw.used += nBits
}

// WriteBit writes a single bit.
func (bw *Writer) WriteBit(b int) {
	bw.WriteBits(uint32(b&1), 1)
}

// flush writes the oldest 32 accumulated bits to the output buffer.
func (bw *Writer) flush() {
	bw.grow(flushBytes)
	shift := uint(bw.used - flushBits)
	binary.BigEndian.PutUint32(bw.buf[bw.cur:], uint32(bw.bits>>shift))
	bw.cur += flushBytes
	bw.used -= flushBits
	bw.bits &= 1<<uint(bw.used) - 1
}

// grow ensures at least n bytes of capacity remain at bw.cur.
func (bw *Writer) grow(n int) {
	if bw.cur+n <= len(bw.buf) {
		return
	}
	newSize := len(bw.buf) * 3 / 2
	if need := bw.cur + n; newSize < need {
		newSize = need
	}
	tmp := make([]byte, newSize)
	copy(tmp, bw.buf[:bw.cur])
	bw.buf = tmp
}

// AlignZero pads the stream with zero bits up to the next byte boundary.
func (bw *Writer) AlignZero() {
	if r := bw.NumBits() & 7; r != 0 {
		bw.WriteBits(0, 8-r)
	}
}

// Finish zero-pads to a byte boundary, flushes all remaining bits and
// returns the complete byte slice.
func (bw *Writer) Finish() []byte {
	bw.AlignZero()
	for bw.used >= flushBits {
		bw.flush()
	}
	bw.grow(bw.used >> 3)
	for bw.used > 0 {
		bw.used -= 8
		bw.buf[bw.cur] = byte(bw.bits >> uint(bw.used))
		bw.cur++
	}
	bw.bits = 0
	return bw.buf[:bw.cur]
}

// NumBits returns the number of bits written so far.
func (bw *Writer) NumBits() int {
	return bw.cur<<3 + bw.used
}
