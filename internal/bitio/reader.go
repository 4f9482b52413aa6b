// Package bitio provides the bit-level input and output used by the CABAC
// engine.
//
// Reader is the byte-aligned bit source beneath the arithmetic decoder: it
// serves MSB-first bits out of one decoding segment's payload and reports
// how many remain. Writer is its MSB-first counterpart and backs the
// arithmetic encoder used to build test streams.
package bitio

import (
	"encoding/binary"
	"math/bits"
)

// cacheBits is the number of bits loaded by one bulk refill of the value
// register (7 bytes, so that a refill never overflows 64 bits).
const cacheBits = 56

// Reader serves bits MSB-first from a byte slice.
//
// A 64-bit value register caches up to 64 look-ahead bits so that bulk
// byte loads are amortised over many single-bit reads, which is the common
// case for the arithmetic decoder's renormalization.
type Reader struct {
	value    uint64 // cached bits, right-aligned; only the low nbits are valid
	nbits    int    // number of valid bits in value
	buf      []byte // input byte buffer
	pos      int    // next byte to load from buf
	consumed int    // bits handed out so far
	eof      bool   // true once a read went past the end of buf
}

// NewReader creates a Reader positioned at the first bit of data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Reset repositions the reader at the first bit of data, dropping any
// cached state.
func (br *Reader) Reset(data []byte) {
	*br = Reader{buf: data}
}

// load refills the value register. When fewer than 8 bytes remain the
// slow path loadFinalBytes is used instead.
func (br *Reader) load() {
	if br.nbits <= 8 && br.pos+8 <= len(br.buf) {
		// Read 8 bytes big-endian and keep the top 56 bits.
		in := binary.LittleEndian.Uint64(br.buf[br.pos:])
		in = bits.ReverseBytes64(in)
		in >>= 64 - cacheBits
		br.value = in | (br.value << cacheBits)
		br.pos += cacheBits >> 3
		br.nbits += cacheBits
		return
	}
	br.loadFinalBytes()
}

// loadFinalBytes reads one byte at a time near the end of the buffer. Past
// the end, zero bits are supplied and the reader is marked exhausted.
func (br *Reader) loadFinalBytes() {
	if br.pos < len(br.buf) {
		br.value = uint64(br.buf[br.pos]) | (br.value << 8)
		br.pos++
	} else {
		br.value <<= 8
	}
	br.nbits += 8
}

// ReadBit returns the next bit.
func (br *Reader) ReadBit() uint32 {
	if br.nbits == 0 {
		br.load()
	}
	br.nbits--
	br.consumed++
	if br.consumed > len(br.buf)<<3 {
		br.eof = true
	}
	return uint32(br.value>>uint(br.nbits)) & 1
}

// ReadBits returns the next n bits (0..32) as an MSB-first value.
func (br *Reader) ReadBits(n int) uint32 {
	if n == 0 {
		return 0
	}
	for br.nbits < n {
		br.load()
	}
	br.nbits -= n
	br.consumed += n
	if br.consumed > len(br.buf)<<3 {
		br.eof = true
	}
	return uint32(br.value>>uint(br.nbits)) & (1<<uint(n) - 1)
}

// ByteAlign skips to the next byte boundary. It is a no-op when the reader
// is already aligned.
func (br *Reader) ByteAlign() {
	if r := br.consumed & 7; r != 0 {
		br.ReadBits(8 - r)
	}
}

// BitsRemaining returns the number of unread bits in the payload.
func (br *Reader) BitsRemaining() int {
	if n := len(br.buf)<<3 - br.consumed; n > 0 {
		return n
	}
	return 0
}

// BitPos returns the number of bits read so far.
func (br *Reader) BitPos() int {
	return br.consumed
}

// BytePos returns the index of the byte holding the next unread bit.
func (br *Reader) BytePos() int {
	return br.consumed >> 3
}

// Exhausted reports whether a read went past the end of the payload. The
// bits returned by such a read are zero.
func (br *Reader) Exhausted() bool {
	return br.eof
}
