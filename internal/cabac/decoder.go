// Package cabac implements the binary arithmetic decoding engine of HEVC
// (ITU-T H.265 clause 9.3.4.3) and the adaptive context model it drives.
//
// The engine keeps two 9-bit registers, range and offset, refilled bit by
// bit from a bitio.Reader. After every call that may renormalize, range is
// in [256, 510].
package cabac

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/deepteams/hevc/internal/bitio"
)

// ErrStreamExhausted is reported once the engine needed bits beyond the end
// of the segment payload. It is fatal to the segment.
var ErrStreamExhausted = errors.New("hevc: cabac stream exhausted")

// ErrMalformedSyntax reports a decoded value that is structurally
// impossible. Decoders substitute 0 for the value and continue; the caller
// decides whether to abort the segment.
var ErrMalformedSyntax = errors.New("hevc: malformed syntax element")

// BinDecoder is the set of bin-level primitives consumed by the syntax
// element and residual decoders.
type BinDecoder interface {
	DecodeDecision(ctx *Context) int
	DecodeBypass() int
	DecodeBypassBits(n int) uint32
	DecodeTerminate() int
	Err() error
}

// Decoder is the CABAC arithmetic decoding engine for one segment.
// It is not safe for concurrent use.
type Decoder struct {
	rng    uint32 // current range, 9 bits
	offset uint32 // current offset, 9 bits
	br     *bitio.Reader
	err    error
}

// NewDecoder creates a Decoder over data and initializes it.
func NewDecoder(data []byte) (*Decoder, error) {
	d := &Decoder{}
	if err := d.Init(bitio.NewReader(data)); err != nil {
		return nil, err
	}
	return d, nil
}

// Init binds the engine to br, aligns br to a byte boundary and loads the
// first 9 bits of the offset register.
func (d *Decoder) Init(br *bitio.Reader) error {
	d.br = br
	d.err = nil
	return d.Restart()
}

// Restart re-initializes the engine at the next byte boundary of its
// reader. It is used after PCM samples and at substream entry points.
func (d *Decoder) Restart() error {
	d.br.ByteAlign()
	if d.br.BitsRemaining() < 9 {
		d.err = ErrStreamExhausted
		return errors.Wrapf(ErrStreamExhausted, "init needs 9 bits, %d remain", d.br.BitsRemaining())
	}
	d.rng = 510
	d.offset = d.br.ReadBits(9)
	return nil
}

// Reader returns the bit source beneath the engine, positioned after the
// last bit consumed. Callers use it to read PCM samples after pcm_flag.
func (d *Decoder) Reader() *bitio.Reader {
	return d.br
}

// DecodeDecision decodes one context-coded bin and adapts ctx.
func (d *Decoder) DecodeDecision(ctx *Context) int {
	lps := uint32(rangeTabLPS[ctx.State][(d.rng>>6)&3])
	d.rng -= lps

	var bin int
	if d.offset >= d.rng {
		bin = int(ctx.MPS ^ 1)
		d.offset -= d.rng
		d.rng = lps
	} else {
		bin = int(ctx.MPS)
	}
	ctx.update(bin)
	d.renormalize()
	return bin
}

// renormalize doubles range until it is at least 256, shifting new bits
// into offset.
func (d *Decoder) renormalize() {
	if d.rng >= 256 {
		return
	}
	n := 9 - bits.Len32(d.rng)
	d.rng <<= uint(n)
	d.offset = d.offset<<uint(n) | d.br.ReadBits(n)
}

// DecodeBypass decodes one equiprobable bin.
func (d *Decoder) DecodeBypass() int {
	d.offset = d.offset<<1 | d.br.ReadBit()
	if d.offset >= d.rng {
		d.offset -= d.rng
		return 1
	}
	return 0
}

// DecodeBypassBits decodes n (0..32) bypass bins into an MSB-first value.
func (d *Decoder) DecodeBypassBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(d.DecodeBypass())
	}
	return v
}

// DecodeTerminate decodes a terminating bin. A result of 1 ends the
// arithmetic-coded data: no renormalization happens and the caller must
// stop decoding bins or Restart the engine.
func (d *Decoder) DecodeTerminate() int {
	d.rng -= 2
	if d.offset >= d.rng {
		return 1
	}
	d.renormalize()
	return 0
}

// Err returns ErrStreamExhausted once any read went past the payload.
func (d *Decoder) Err() error {
	if d.err == nil && d.br != nil && d.br.Exhausted() {
		d.err = ErrStreamExhausted
	}
	return d.err
}

// Range returns the current range register.
func (d *Decoder) Range() uint32 { return d.rng }

// Offset returns the current offset register.
func (d *Decoder) Offset() uint32 { return d.offset }
