// Package cabactest provides bin sources for testing code built on the
// CABAC engine: an arithmetic encoder that produces real streams, a scripted
// BinDecoder, and a recorder whose traces can be re-encoded.
package cabactest

import (
	"github.com/deepteams/hevc/internal/bitio"
	"github.com/deepteams/hevc/internal/cabac"
)

// Encoder is the HEVC arithmetic encoder (ITU-T H.265 clause 9.3.5). Its
// output decodes bin for bin with cabac.Decoder when both sides start from
// identically initialized contexts.
type Encoder struct {
	low         uint32 // 10-bit low register
	rng         uint32
	outstanding int
	firstBit    bool
	bw          *bitio.Writer
}

// NewEncoder returns an Encoder ready to code the first bin.
func NewEncoder() *Encoder {
	e := &Encoder{bw: bitio.NewWriter(0)}
	e.reset()
	return e
}

func (e *Encoder) reset() {
	e.low = 0
	e.rng = 510
	e.outstanding = 0
	e.firstBit = true
}

// EncodeDecision codes bin with ctx and adapts ctx the way the decoder does.
func (e *Encoder) EncodeDecision(ctx *cabac.Context, bin int) {
	lps := cabac.LPSRange(ctx.State, e.rng)
	e.rng -= lps
	if bin != int(ctx.MPS) {
		e.low += e.rng
		e.rng = lps
		if ctx.State == 0 {
			ctx.MPS ^= 1
		}
		ctx.State = cabac.NextStateLPS(ctx.State)
	} else {
		ctx.State = cabac.NextStateMPS(ctx.State)
	}
	e.renormalize()
}

// EncodeBypass codes one equiprobable bin.
func (e *Encoder) EncodeBypass(bin int) {
	e.low <<= 1
	if bin != 0 {
		e.low += e.rng
	}
	switch {
	case e.low >= 1024:
		e.putBit(1)
		e.low -= 1024
	case e.low < 512:
		e.putBit(0)
	default:
		e.low -= 512
		e.outstanding++
	}
}

// EncodeBypassBits codes the low n bits of v, most significant first.
func (e *Encoder) EncodeBypassBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		e.EncodeBypass(int(v>>uint(i)) & 1)
	}
}

// EncodeTerminate codes a terminating bin. A 1 flushes the engine and
// writes the stop bit; the caller then aligns or calls Restart.
func (e *Encoder) EncodeTerminate(bin int) {
	e.rng -= 2
	if bin == 0 {
		e.renormalize()
		return
	}
	e.low += e.rng
	e.rng = 2
	e.renormalize()
	e.putBit(int(e.low>>9) & 1)
	e.bw.WriteBits((e.low>>7)&3|1, 2)
}

// Restart pads the output to a byte boundary and resets the registers, the
// encoder side of cabac.Decoder.Restart. It must follow EncodeTerminate(1).
func (e *Encoder) Restart() {
	e.bw.AlignZero()
	e.reset()
}

// Writer exposes the underlying bit writer, e.g. to emit PCM samples after a
// terminating pcm_flag and before Restart.
func (e *Encoder) Writer() *bitio.Writer {
	return e.bw
}

// Finish terminates the stream with a 1 bin, zero-pads it to a byte
// boundary and returns the payload.
func (e *Encoder) Finish() []byte {
	e.EncodeTerminate(1)
	return e.bw.Finish()
}

func (e *Encoder) renormalize() {
	for e.rng < 256 {
		switch {
		case e.low < 256:
			e.putBit(0)
		case e.low >= 512:
			e.low -= 512
			e.putBit(1)
		default:
			e.low -= 256
			e.outstanding++
		}
		e.rng <<= 1
		e.low <<= 1
	}
}

func (e *Encoder) putBit(b int) {
	if e.firstBit {
		e.firstBit = false
	} else {
		e.bw.WriteBit(b)
	}
	for ; e.outstanding > 0; e.outstanding-- {
		e.bw.WriteBit(1 - b)
	}
}

// Payload returns the stream for callers that already coded their final
// terminating bin.
func (e *Encoder) Payload() []byte {
	return e.bw.Finish()
}
