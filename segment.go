package hevc

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deepteams/hevc/internal/bitio"
	"github.com/deepteams/hevc/internal/cabac"
	"github.com/deepteams/hevc/internal/ctxtable"
	"github.com/deepteams/hevc/internal/metrics"
	"github.com/deepteams/hevc/internal/pool"
	"github.com/deepteams/hevc/internal/residual"
	"github.com/deepteams/hevc/internal/syntax"
)

// Snapshot is the saved entropy state of a segment: every context model
// and, when persistent Rice adaptation is on, the StatCoeff counters. It is
// taken after the second CTB of a row for wavefront decoding and at the end
// of a slice segment for dependent slice segments.
type Snapshot struct {
	ctx     ctxtable.Snapshot
	rice    residual.RiceState
	hasRice bool
}

// Option configures a Segment.
type Option func(*Segment)

// WithLogger sets the logger for malformed-syntax events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Segment) { s.log = l }
}

// WithSnapshot starts the segment from a saved state instead of
// initializing the contexts from the slice parameters.
func WithSnapshot(snap *Snapshot) Option {
	return func(s *Segment) { s.start = snap }
}

// WithMetrics records decode activity in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Segment) { s.metrics = m }
}

// Segment decodes one independent segment: a slice segment, a tile, or a
// wavefront row. It is not safe for concurrent use; concurrent segments
// each need their own Segment.
type Segment struct {
	params   SliceParams
	initType ctxtable.InitType

	br   bitio.Reader
	eng  cabac.Decoder
	tbl  ctxtable.Table
	rice residual.RiceState

	res *residual.Decoder
	syn *syntax.Decoder

	log     zerolog.Logger
	metrics *metrics.Metrics
	start   *Snapshot

	err error // first fatal error
}

// NewSegment validates p and starts decoding payload, the entry-point
// data of the segment beginning at a byte boundary.
func NewSegment(payload []byte, p *SliceParams, opts ...Option) (*Segment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Segment{
		params:   *p,
		initType: p.initType(),
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.res = residual.NewDecoder(p.flags(), residual.WithLogger(s.log))
	s.syn = syntax.NewDecoder(&s.eng, &s.tbl, s.log)
	s.syn.OnMalformed(s.metrics.Malformed)

	if s.start != nil {
		s.RestoreSnapshot(s.start)
	} else {
		s.resetContexts()
	}
	s.metrics.Segment()

	s.br.Reset(payload)
	if err := s.eng.Init(&s.br); err != nil {
		s.metrics.Exhausted()
		return nil, errors.Wrap(err, "segment init")
	}
	return s, nil
}

func (s *Segment) resetContexts() {
	s.tbl.Init(s.initType, s.params.QP)
	s.rice.Reset()
}

// Params returns the slice parameters of the segment.
func (s *Segment) Params() SliceParams { return s.params }

// Syntax returns the syntax element decoder bound to the segment's engine
// and contexts.
func (s *Segment) Syntax() *Syntax { return s.syn }

// QuantParams derives the dequantization parameters of tb.
func (s *Segment) QuantParams(tb *TransformBlock) QuantParams {
	return s.params.Quant.Derive(tb.quantBlock())
}

// DecodeResidual decodes the residual_coding of tb into out, indexed
// y<<Log2Size + x, and returns the number of non-zero coefficients. out
// must hold 1<<(2*Log2Size) entries.
//
// An error wrapping ErrMalformedSyntax leaves a usable block in out. Any
// other error is fatal and is returned again by every later call.
func (s *Segment) DecodeResidual(tb *TransformBlock, out []int16) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	p := s.QuantParams(tb)
	n, err := s.res.Decode(&s.eng, &s.tbl, &s.rice, &tb.Block, &p, out)
	switch errors.Cause(err) {
	case nil:
	case ErrMalformedSyntax:
		s.metrics.Malformed("coeff_abs_level_remaining")
	default:
		return 0, s.fail(err)
	}
	s.metrics.Block(tb.CIdx, n)
	return n, err
}

// DecodeResidualPooled is DecodeResidual into a pooled buffer. The caller
// hands the buffer back with ReleaseCoeffs once the inverse transform has
// consumed it. On a fatal error the buffer is nil.
func (s *Segment) DecodeResidualPooled(tb *TransformBlock) ([]int16, int, error) {
	buf := pool.GetCoeffs(tb.Log2Size)
	n, err := s.DecodeResidual(tb, buf)
	if err != nil && errors.Cause(err) != ErrMalformedSyntax {
		pool.PutCoeffs(buf)
		return nil, 0, err
	}
	return buf, n, err
}

// ReleaseCoeffs returns a buffer obtained from DecodeResidualPooled.
func ReleaseCoeffs(buf []int16) {
	pool.PutCoeffs(buf)
}

// ReadPCM reads len(dst) PCM samples of bitDepth bits after a pcm_flag of
// 1, then restarts the arithmetic decoder after them.
func (s *Segment) ReadPCM(dst []uint16, bitDepth int) error {
	if s.err != nil {
		return s.err
	}
	br := s.eng.Reader()
	br.ByteAlign()
	if need := len(dst) * bitDepth; br.BitsRemaining() < need {
		return s.fail(errors.Wrapf(ErrStreamExhausted, "pcm_sample: need %d bits, %d remain", need, br.BitsRemaining()))
	}
	for i := range dst {
		dst[i] = uint16(br.ReadBits(bitDepth))
	}
	if err := s.eng.Restart(); err != nil {
		return s.fail(err)
	}
	return nil
}

// EndOfSliceSegment decodes end_of_slice_segment_flag.
func (s *Segment) EndOfSliceSegment() (bool, error) {
	end := s.syn.EndOfSliceSegmentFlag()
	return end, s.Err()
}

// Snapshot saves the current entropy state.
func (s *Segment) Snapshot() *Snapshot {
	return &Snapshot{
		ctx:     s.tbl.Snapshot(),
		rice:    s.rice,
		hasRice: s.params.PersistentRice,
	}
}

// RestoreSnapshot replaces the entropy state with snap. The StatCoeff
// counters are reset when snap carries none.
func (s *Segment) RestoreSnapshot(snap *Snapshot) {
	s.tbl.Restore(snap.ctx)
	if snap.hasRice && s.params.PersistentRice {
		s.rice = snap.rice
	} else {
		s.rice.Reset()
	}
}

// StartSubstream moves the segment to the next entry point, whose data
// starts at a byte boundary. With resetContexts the contexts are
// initialized from the slice parameters, as at a tile start; otherwise
// they are kept, so a wavefront caller restores a snapshot first.
func (s *Segment) StartSubstream(data []byte, resetContexts bool) error {
	if resetContexts {
		s.resetContexts()
	}
	s.err = nil
	s.syn.ClearMalformed()
	s.br.Reset(data)
	if err := s.eng.Init(&s.br); err != nil {
		return s.fail(errors.Wrap(err, "substream init"))
	}
	return nil
}

// Err returns the fatal error of the segment, if any: a stream exhausted
// by a syntax element or residual block.
func (s *Segment) Err() error {
	if s.err == nil {
		if err := s.eng.Err(); err != nil {
			s.fail(err)
		}
	}
	return s.err
}

func (s *Segment) fail(err error) error {
	if s.err == nil {
		s.err = err
		if errors.Cause(err) == ErrStreamExhausted {
			s.metrics.Exhausted()
		}
		s.log.Debug().Err(err).Msg("segment failed")
	}
	return s.err
}
