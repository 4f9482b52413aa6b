package cabactest

import "github.com/deepteams/hevc/internal/cabac"

// Script is a cabac.BinDecoder that returns predetermined bins in order,
// regardless of the bin kind or context. Reading past the end returns 0 and
// reports cabac.ErrStreamExhausted.
type Script struct {
	bins []int
	pos  int
	err  error
}

// NewScript returns a Script serving bins.
func NewScript(bins ...int) *Script {
	return &Script{bins: bins}
}

// Bits expands the low n bits of v, MSB first, into script bins.
func Bits(v uint32, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(v>>uint(n-1-i)) & 1
	}
	return out
}

// Concat joins bin groups so scripts can be written element by element.
func Concat(groups ...[]int) []int {
	var out []int
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func (s *Script) next() int {
	if s.pos >= len(s.bins) {
		s.err = cabac.ErrStreamExhausted
		return 0
	}
	b := s.bins[s.pos]
	s.pos++
	return b
}

func (s *Script) DecodeDecision(*cabac.Context) int { return s.next() }
func (s *Script) DecodeBypass() int                 { return s.next() }
func (s *Script) DecodeTerminate() int              { return s.next() }

func (s *Script) DecodeBypassBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(s.next())
	}
	return v
}

func (s *Script) Err() error { return s.err }

// Remaining returns the number of unread bins.
func (s *Script) Remaining() int { return len(s.bins) - s.pos }
