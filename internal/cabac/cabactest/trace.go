package cabactest

import "github.com/deepteams/hevc/internal/cabac"

// Kind is the engine primitive a traced bin was decoded with.
type Kind uint8

const (
	Decision Kind = iota
	Bypass
	Terminate
)

// Step is one traced bin.
type Step struct {
	Kind Kind
	Ctx  *cabac.Context // set for Decision steps only
	Bin  int
}

// Recorder wraps a BinDecoder and records every bin it returns.
type Recorder struct {
	Src   cabac.BinDecoder
	Trace []Step
}

// NewRecorder returns a Recorder over src.
func NewRecorder(src cabac.BinDecoder) *Recorder {
	return &Recorder{Src: src}
}

func (r *Recorder) DecodeDecision(ctx *cabac.Context) int {
	b := r.Src.DecodeDecision(ctx)
	r.Trace = append(r.Trace, Step{Kind: Decision, Ctx: ctx, Bin: b})
	return b
}

func (r *Recorder) DecodeBypass() int {
	b := r.Src.DecodeBypass()
	r.Trace = append(r.Trace, Step{Kind: Bypass, Bin: b})
	return b
}

func (r *Recorder) DecodeBypassBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(r.DecodeBypass())
	}
	return v
}

func (r *Recorder) DecodeTerminate() int {
	b := r.Src.DecodeTerminate()
	r.Trace = append(r.Trace, Step{Kind: Terminate, Bin: b})
	return b
}

func (r *Recorder) Err() error { return r.Src.Err() }

// Replay encodes trace into a real CABAC stream. ctxFor maps each context
// recorded in the trace to the encoder's own copy, which must start in the
// state the recorded context had when decoding began.
func Replay(trace []Step, ctxFor func(*cabac.Context) *cabac.Context) []byte {
	e := NewEncoder()
	for _, s := range trace {
		switch s.Kind {
		case Decision:
			e.EncodeDecision(ctxFor(s.Ctx), s.Bin)
		case Bypass:
			e.EncodeBypass(s.Bin)
		case Terminate:
			e.EncodeTerminate(s.Bin)
			if s.Bin == 1 {
				e.Restart()
			}
		}
	}
	return e.Finish()
}
