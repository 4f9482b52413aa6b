package hevc

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/deepteams/hevc/internal/cabac"
	"github.com/deepteams/hevc/internal/cabac/cabactest"
	"github.com/deepteams/hevc/internal/ctxtable"
	"github.com/deepteams/hevc/internal/residual"
	"github.com/deepteams/hevc/internal/syntax"
)

func testParams() *SliceParams {
	return &SliceParams{
		SliceType: SliceI,
		QP:        26,
		Quant: QuantConfig{
			BitDepthLuma:   8,
			BitDepthChroma: 8,
			ChromaFormat:   Chroma420,
		},
	}
}

// singleDC encodes one 4x4 luma block whose only coefficient is a DC level
// of +1, then end_of_slice_segment_flag.
func singleDC(qp int) []byte {
	tbl := ctxtable.New(0, qp)
	e := cabactest.NewEncoder()
	e.EncodeDecision(tbl.Ctx(ctxtable.LastSigCoeffXPrefix, 0), 0)
	e.EncodeDecision(tbl.Ctx(ctxtable.LastSigCoeffYPrefix, 0), 0)
	e.EncodeDecision(tbl.Ctx(ctxtable.CoeffAbsLevelGreater1, 1), 0)
	e.EncodeBypass(0)
	return e.Finish()
}

func dcBlock() *TransformBlock {
	return &TransformBlock{Block: Block{Log2Size: 2, Intra: true}, QPY: 26}
}

func TestSliceParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *SliceParams)
		ok     bool
	}{
		{"default", func(p *SliceParams) {}, true},
		{"qp 51", func(p *SliceParams) { p.QP = 51 }, true},
		{"qp 52", func(p *SliceParams) { p.QP = 52 }, false},
		{"qp -1 at 8 bit", func(p *SliceParams) { p.QP = -1 }, false},
		{"qp -12 at 10 bit", func(p *SliceParams) { p.QP = -12; p.Quant.BitDepthLuma = 10 }, true},
		{"slice type", func(p *SliceParams) { p.SliceType = 3 }, false},
		{"luma depth", func(p *SliceParams) { p.Quant.BitDepthLuma = 7 }, false},
		{"chroma depth", func(p *SliceParams) { p.Quant.BitDepthChroma = 17 }, false},
		{"chroma format", func(p *SliceParams) { p.Quant.ChromaFormat = 4 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(p)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("err = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestNewSegment_InitErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	p := testParams()
	p.QP = 60
	if _, err := NewSegment(singleDC(26), p, WithMetrics(m)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("bad params: err = %v", err)
	}
	if _, err := NewSegment([]byte{0x12}, testParams(), WithMetrics(m)); !errors.Is(err, ErrStreamExhausted) {
		t.Errorf("short payload: err = %v", err)
	}
	if got := testutil.ToFloat64(m.StreamExhausted); got != 1 {
		t.Errorf("exhausted counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SegmentsStarted); got != 1 {
		t.Errorf("segments counter = %v, want 1", got)
	}
}

func TestDecodeResidual_SingleDC(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	seg, err := NewSegment(singleDC(26), testParams(), WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	out := make([]int16, 16)
	n, err := seg.DecodeResidual(dcBlock(), out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if out[0] != 408 {
		t.Errorf("DC = %d, want 408", out[0])
	}
	for i := 1; i < 16; i++ {
		if out[i] != 0 {
			t.Errorf("out[%d] = %d, want 0", i, out[i])
		}
	}
	end, err := seg.EndOfSliceSegment()
	if err != nil || !end {
		t.Errorf("EndOfSliceSegment = %v, %v; want true, nil", end, err)
	}
	if got := testutil.ToFloat64(m.BlocksDecoded.WithLabelValues("luma")); got != 1 {
		t.Errorf("luma blocks = %v, want 1", got)
	}
}

func TestDecodeResidual_Malformed(t *testing.T) {
	tbl := ctxtable.New(0, 26)
	e := cabactest.NewEncoder()
	e.EncodeDecision(tbl.Ctx(ctxtable.LastSigCoeffXPrefix, 0), 0)
	e.EncodeDecision(tbl.Ctx(ctxtable.LastSigCoeffYPrefix, 0), 0)
	e.EncodeDecision(tbl.Ctx(ctxtable.CoeffAbsLevelGreater1, 1), 1)
	e.EncodeDecision(tbl.Ctx(ctxtable.CoeffAbsLevelGreater2, 0), 1)
	e.EncodeBypass(0)
	for i := 0; i < 31; i++ {
		e.EncodeBypass(1)
	}
	data := e.Finish()

	m := NewMetrics(prometheus.NewRegistry())
	seg, err := NewSegment(data, testParams(), WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	out := make([]int16, 16)
	n, err := seg.DecodeResidual(dcBlock(), out)
	if !errors.Is(err, ErrMalformedSyntax) {
		t.Fatalf("err = %v, want ErrMalformedSyntax", err)
	}
	if n != 1 || out[0] != 1224 {
		t.Errorf("n = %d, DC = %d; want 1, 1224", n, out[0])
	}
	if seg.Err() != nil {
		t.Errorf("malformed value made the segment fail: %v", seg.Err())
	}
	if end, _ := seg.EndOfSliceSegment(); !end {
		t.Error("end_of_slice_segment_flag not found after the malformed block")
	}
	if got := testutil.ToFloat64(m.MalformedSyntax.WithLabelValues("coeff_abs_level_remaining")); got != 1 {
		t.Errorf("malformed counter = %v, want 1", got)
	}
}

func TestDecodeResidual_ExhaustionIsSticky(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	seg, err := NewSegment([]byte{0xA5, 0x5A}, testParams(), WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	tb := &TransformBlock{Block: Block{Log2Size: 5}, QPY: 26}
	out := make([]int16, 1024)
	var first error
	for i := 0; i < 100; i++ {
		if _, err := seg.DecodeResidual(tb, out); err != nil && !errors.Is(err, ErrMalformedSyntax) {
			first = err
			break
		}
	}
	if !errors.Is(first, ErrStreamExhausted) {
		t.Fatalf("err = %v, want ErrStreamExhausted", first)
	}
	if _, err := seg.DecodeResidual(tb, out); err != first {
		t.Errorf("second call: err = %v, want %v", err, first)
	}
	if seg.Err() != first {
		t.Errorf("Err = %v, want %v", seg.Err(), first)
	}
	if got := testutil.ToFloat64(m.StreamExhausted); got != 1 {
		t.Errorf("exhausted counter = %v, want 1", got)
	}
}

func TestDecodeResidualPooled(t *testing.T) {
	seg, err := NewSegment(singleDC(26), testParams())
	if err != nil {
		t.Fatal(err)
	}
	buf, n, err := seg.DecodeResidualPooled(dcBlock())
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 16 || n != 1 || buf[0] != 408 {
		t.Errorf("len %d, n %d, DC %d; want 16, 1, 408", len(buf), n, buf[0])
	}
	ReleaseCoeffs(buf)
}

func TestReadPCM(t *testing.T) {
	samples := []uint16{12, 200, 0, 255}
	tbl := ctxtable.New(0, 26)
	e := cabactest.NewEncoder()
	e.EncodeTerminate(1) // pcm_flag
	e.Writer().AlignZero()
	for _, v := range samples {
		e.Writer().WriteBits(uint32(v), 8)
	}
	e.Restart()
	e.EncodeDecision(tbl.Ctx(ctxtable.SplitCUFlag, 0), 1)
	data := e.Finish()

	seg, err := NewSegment(data, testParams())
	if err != nil {
		t.Fatal(err)
	}
	if !seg.Syntax().PCMFlag() {
		t.Fatal("pcm_flag = 0")
	}
	got := make([]uint16, len(samples))
	if err := seg.ReadPCM(got, 8); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, samples) {
		t.Errorf("samples = %v, want %v", got, samples)
	}
	if !seg.Syntax().SplitCUFlag(false, false) {
		t.Error("split_cu_flag after PCM = 0, want 1")
	}
	if end, err := seg.EndOfSliceSegment(); !end || err != nil {
		t.Errorf("EndOfSliceSegment = %v, %v", end, err)
	}

	seg, _ = NewSegment(data, testParams())
	seg.Syntax().PCMFlag()
	if err := seg.ReadPCM(make([]uint16, 64), 8); !errors.Is(err, ErrStreamExhausted) {
		t.Errorf("oversized PCM: err = %v, want ErrStreamExhausted", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	for _, persistent := range []bool{false, true} {
		p := testParams()
		p.PersistentRice = persistent
		seg, err := NewSegment(singleDC(26), p)
		if err != nil {
			t.Fatal(err)
		}
		seg.rice = residual.RiceState{1, 2, 3, 4}
		snap := seg.Snapshot()

		seg.tbl.Init(2, 40)
		seg.rice = residual.RiceState{9, 9, 9, 9}
		seg.RestoreSnapshot(snap)

		if seg.tbl != *ctxtable.New(0, 26) {
			t.Errorf("persistent=%v: contexts not restored", persistent)
		}
		want := residual.RiceState{}
		if persistent {
			want = residual.RiceState{1, 2, 3, 4}
		}
		if seg.rice != want {
			t.Errorf("persistent=%v: rice = %v, want %v", persistent, seg.rice, want)
		}

		// A segment started from the snapshot continues from the same state.
		next, err := NewSegment(singleDC(26), p, WithSnapshot(snap))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(next.Snapshot(), seg.Snapshot()) {
			t.Errorf("persistent=%v: WithSnapshot state differs", persistent)
		}
	}
}

func TestStartSubstream(t *testing.T) {
	seg, err := NewSegment(singleDC(26), testParams())
	if err != nil {
		t.Fatal(err)
	}
	out := make([]int16, 16)
	for i := 0; i < 3; i++ {
		if i > 0 {
			if err := seg.StartSubstream(singleDC(26), true); err != nil {
				t.Fatalf("substream %d: %v", i, err)
			}
		}
		if _, err := seg.DecodeResidual(dcBlock(), out); err != nil || out[0] != 408 {
			t.Fatalf("substream %d: DC = %d, err = %v", i, out[0], err)
		}
		if !seg.Syntax().EndOfSubsetOneBit() {
			t.Fatalf("substream %d: end_of_subset_one_bit = 0", i)
		}
	}
	if err := seg.StartSubstream(nil, true); !errors.Is(err, ErrStreamExhausted) {
		t.Errorf("empty substream: err = %v", err)
	}
}

type recordedBlock struct {
	tb    TransformBlock
	cbf   bool
	left  bool
	above bool
	want  []int16
	bad   bool
}

// recordSlice decodes random bins as a sequence of split flags, cbf flags
// and residual blocks, and returns the blocks with the coefficients the
// decode produced together with a CABAC payload that encodes the same bins,
// and the entropy state the encoder ended with. The script ignores
// contexts, so the recording table never adapts; the encoder's table does.
func recordSlice(rng *rand.Rand, p *SliceParams, nBlocks int) ([]recordedBlock, []byte, ctxtable.Snapshot, residual.RiceState) {
	random := make([]int, 80000)
	for i := range random {
		random[i] = rng.Intn(2)
	}
	recTbl := ctxtable.New(p.initType(), p.QP)
	rec := cabactest.NewRecorder(cabactest.NewScript(random...))
	syn := syntax.NewDecoder(rec, recTbl, zerolog.Nop())
	res := residual.NewDecoder(p.flags())
	var rice residual.RiceState

	blocks := make([]recordedBlock, nBlocks)
	for i := range blocks {
		b := &blocks[i]
		log2 := 2 + rng.Intn(4)
		cIdx := rng.Intn(3)
		if cIdx > 0 && log2 == 5 {
			log2 = 4
		}
		mode := rng.Intn(35)
		b.tb = TransformBlock{
			Block: Block{
				Log2Size:      log2,
				CIdx:          cIdx,
				ScanDir:       ScanDirectionFor(log2, cIdx, true, mode, p.Quant.ChromaFormat),
				TransformSkip: log2 == 2 && rng.Intn(3) == 0,
				Bypass:        rng.Intn(8) == 0,
				Intra:         true,
				IntraPredMode: mode,
			},
			QPY: p.QP + rng.Intn(5) - 2,
		}
		b.left, b.above = rng.Intn(2) == 1, rng.Intn(2) == 1
		syn.SplitCUFlag(b.left, b.above)
		b.cbf = syn.CBFLuma(1)

		coeffs, err := res.Parse(rec, recTbl, &rice, &b.tb.Block, nil)
		if err != nil && !errors.Is(err, cabac.ErrMalformedSyntax) {
			panic(err)
		}
		b.bad = err != nil
		qp := p.Quant.Derive(b.tb.quantBlock())
		b.want = make([]int16, 1<<uint(2*log2))
		residual.Dequantize(coeffs, &qp, b.want)
	}

	encTbl := ctxtable.New(p.initType(), p.QP)
	data := cabactest.Replay(rec.Trace, func(c *cabac.Context) *cabac.Context {
		return encTbl.At(recTbl.IndexOf(c))
	})
	return blocks, data, encTbl.Snapshot(), rice
}

func TestSegment_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for iter := 0; iter < 30; iter++ {
		p := &SliceParams{
			SliceType:            SliceType(iter % 3),
			CABACInitFlag:        iter%4 == 1,
			QP:                   20 + iter%15,
			SignDataHiding:       iter%2 == 0,
			PersistentRice:       iter%3 != 1,
			TransformSkipContext: iter%5 == 0,
			ImplicitRDPCM:        iter%2 == 1,
			Quant: QuantConfig{
				BitDepthLuma:   8 + iter%3,
				BitDepthChroma: 8,
				ChromaFormat:   ChromaFormat(1 + iter%3),
			},
		}
		if iter%4 == 3 {
			p.Quant.Scaling = NewScalingMatrices(DefaultScalingList())
		}
		blocks, data, wantCtx, wantRice := recordSlice(rng, p, 6)
		if wantCtx == ctxtable.New(p.initType(), p.QP).Snapshot() {
			t.Fatalf("iter %d: recorded contexts never adapted", iter)
		}

		reg := prometheus.NewRegistry()
		m := NewMetrics(reg)
		seg, err := NewSegment(data, p, WithMetrics(m))
		if err != nil {
			t.Fatalf("iter %d: %v", iter, err)
		}
		syn := seg.Syntax()
		total := 0
		for i := range blocks {
			b := &blocks[i]
			syn.SplitCUFlag(b.left, b.above)
			if cbf := syn.CBFLuma(1); cbf != b.cbf {
				t.Fatalf("iter %d block %d: cbf_luma = %v, want %v", iter, i, cbf, b.cbf)
			}
			got := make([]int16, len(b.want))
			n, err := seg.DecodeResidual(&b.tb, got)
			if (err != nil) != b.bad {
				t.Fatalf("iter %d block %d: err = %v, malformed when recorded = %v", iter, i, err, b.bad)
			}
			if !reflect.DeepEqual(got, b.want) {
				t.Fatalf("iter %d block %d (%+v): coefficients differ", iter, i, b.tb)
			}
			total += n
		}
		if end, err := seg.EndOfSliceSegment(); !end || err != nil {
			t.Errorf("iter %d: EndOfSliceSegment = %v, %v", iter, end, err)
		}
		snap := seg.Snapshot()
		if snap.ctx != wantCtx {
			t.Errorf("iter %d: contexts diverged", iter)
		}
		if p.PersistentRice && snap.rice != wantRice {
			t.Errorf("iter %d: rice = %v, want %v", iter, snap.rice, wantRice)
		}
		if got := testutil.ToFloat64(m.CoeffsDecoded); got != float64(total) {
			t.Errorf("iter %d: coefficient counter = %v, want %d", iter, got, total)
		}
	}
}
