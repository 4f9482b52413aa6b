// Package wavefront decodes the CTB rows of a picture that uses wavefront
// parallel processing (entropy_coding_sync_enabled_flag) concurrently.
//
// Each row is a separate substream. Row y starts once row y-1 has decoded
// its second CTB (its first when the picture is one CTB wide), from the
// entropy state saved at that point. After that, CTB x of row y waits for
// CTB x+1 of row y-1, so that the above-right neighbour is always
// available to the caller's coding-tree walk.
package wavefront

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/deepteams/hevc"
)

// ErrSubstreamCount is returned when the number of substreams is zero.
var ErrSubstreamCount = errors.New("wavefront: no substreams")

// CTBFunc decodes the coding tree block at column x of row y from seg.
// Calls for one row are sequential; calls for different rows run
// concurrently.
type CTBFunc func(seg *hevc.Segment, x, y int) error

// Option configures a Decoder.
type Option func(*Decoder)

// WithWorkers bounds the number of rows decoded at once. The default is
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Decoder) { d.workers = n }
}

// WithLogger sets the logger passed to every row's segment.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Decoder) { d.log = l }
}

// WithMetrics records decode activity in m.
func WithMetrics(m *hevc.Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

// Decoder runs wavefront row decoding for one slice.
type Decoder struct {
	params  *hevc.SliceParams
	workers int
	log     zerolog.Logger
	metrics *hevc.Metrics
}

// NewDecoder returns a Decoder for slices described by p.
func NewDecoder(p *hevc.SliceParams, opts ...Option) *Decoder {
	d := &Decoder{
		params:  p,
		workers: runtime.GOMAXPROCS(0),
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.workers < 1 {
		d.workers = 1
	}
	return d
}

// rowSync tracks per-row progress. A row that stops early, by error or
// because the row above failed, is marked failed so that rows below it
// stop waiting.
type rowSync struct {
	rows []rowState
}

type rowState struct {
	done   atomic.Int32
	failed atomic.Bool
	mu     sync.Mutex
	cond   *sync.Cond
	snap   *hevc.Snapshot // entropy state after the sync CTB
}

func newRowSync(n int) *rowSync {
	rs := &rowSync{rows: make([]rowState, n)}
	for i := range rs.rows {
		rs.rows[i].cond = sync.NewCond(&rs.rows[i].mu)
	}
	return rs
}

// waitFor blocks until row y has completed at least needed CTBs. It
// returns false if row y failed first.
func (rs *rowSync) waitFor(y int, needed int32) bool {
	r := &rs.rows[y]
	if r.done.Load() >= needed {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.done.Load() < needed && !r.failed.Load() {
		r.cond.Wait()
	}
	return r.done.Load() >= needed
}

// signal marks that row y has completed done CTBs.
func (rs *rowSync) signal(y int, done int32) {
	r := &rs.rows[y]
	r.mu.Lock()
	r.done.Store(done)
	r.mu.Unlock()
	r.cond.Broadcast()
}

func (rs *rowSync) fail(y int) {
	r := &rs.rows[y]
	r.mu.Lock()
	r.failed.Store(true)
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Decode decodes one row per substream, each ctbCols CTBs wide, calling fn
// for every CTB. It returns the first error of fn or of a row's segment.
func (d *Decoder) Decode(ctx context.Context, substreams [][]byte, ctbCols int, fn CTBFunc) error {
	if len(substreams) == 0 {
		return ErrSubstreamCount
	}
	if ctbCols < 1 {
		return errors.Errorf("wavefront: invalid width %d CTBs", ctbCols)
	}
	if err := d.params.Validate(); err != nil {
		return err
	}

	// The sync CTB is the one after which the next row may start.
	syncCTB := 1
	if ctbCols == 1 {
		syncCTB = 0
	}

	rs := newRowSync(len(substreams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for y := range substreams {
		y := y
		g.Go(func() error {
			err := d.decodeRow(gctx, rs, substreams[y], y, ctbCols, syncCTB, fn)
			if err != nil || rs.rows[y].done.Load() < int32(ctbCols) {
				rs.fail(y)
			}
			return err
		})
	}
	return g.Wait()
}

func (d *Decoder) decodeRow(ctx context.Context, rs *rowSync, data []byte, y, ctbCols, syncCTB int, fn CTBFunc) error {
	opts := []hevc.Option{
		hevc.WithLogger(d.log.With().Int("row", y).Logger()),
		hevc.WithMetrics(d.metrics),
	}
	if y > 0 {
		if !rs.waitFor(y-1, int32(syncCTB+1)) {
			return nil
		}
		opts = append(opts, hevc.WithSnapshot(rs.rows[y-1].snap))
	}
	seg, err := hevc.NewSegment(data, d.params, opts...)
	if err != nil {
		return errors.Wrapf(err, "row %d", y)
	}

	for x := 0; x < ctbCols; x++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if y > 0 && x+1 < ctbCols {
			if !rs.waitFor(y-1, int32(x+2)) {
				return nil
			}
		}
		if err := fn(seg, x, y); err != nil {
			return errors.Wrapf(err, "ctb (%d, %d)", x, y)
		}
		if err := seg.Err(); err != nil {
			return errors.Wrapf(err, "ctb (%d, %d)", x, y)
		}
		if x == syncCTB {
			rs.rows[y].snap = seg.Snapshot()
		}
		rs.signal(y, int32(x+1))
	}
	d.metrics.Row()
	d.log.Debug().Int("row", y).Msg("row decoded")
	return nil
}
