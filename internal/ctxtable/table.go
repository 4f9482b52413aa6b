// Package ctxtable holds the CABAC context table of one decoding segment:
// every context-coded syntax element's probability models in one flat
// array, initialized from the slice type and QP, with snapshot and restore
// for wavefront and dependent-slice resumption.
package ctxtable

import (
	"fmt"

	"github.com/deepteams/hevc/internal/cabac"
)

// Accepted slice QP range. Negative values occur at high bit depths and
// are clipped to 0 by the init formula.
const (
	MinSliceQP = -48
	MaxSliceQP = 51
)

// SliceType is the slice_type value of a slice segment header.
type SliceType uint8

const (
	SliceB SliceType = 0
	SliceP SliceType = 1
	SliceI SliceType = 2
)

func (s SliceType) String() string {
	switch s {
	case SliceB:
		return "B"
	case SliceP:
		return "P"
	case SliceI:
		return "I"
	}
	return fmt.Sprintf("SliceType(%d)", uint8(s))
}

// InitType selects one of the three sets of initialization values.
type InitType uint8

// InitTypeFor derives initType from the slice type and cabac_init_flag,
// which swaps the P and B tables.
func InitTypeFor(st SliceType, cabacInitFlag bool) InitType {
	switch st {
	case SliceI:
		return 0
	case SliceP:
		if cabacInitFlag {
			return 2
		}
		return 1
	default:
		if cabacInitFlag {
			return 1
		}
		return 2
	}
}

// Table is the flat context array of one segment. The zero value must be
// initialized with Init or Restore before use.
type Table struct {
	ctx [NumContexts]cabac.Context
}

// Snapshot is an opaque copy of a Table's contexts.
type Snapshot struct {
	ctx [NumContexts]cabac.Context
}

// New returns a Table initialized for initType and sliceQP.
func New(it InitType, sliceQP int) *Table {
	t := &Table{}
	t.Init(it, sliceQP)
	return t
}

// Init resets every context from the initType's value set. It panics if it
// is not 0..2 or sliceQP is outside [MinSliceQP, MaxSliceQP].
func (t *Table) Init(it InitType, sliceQP int) {
	if it > 2 {
		panic(fmt.Sprintf("ctxtable: invalid initType %d", it))
	}
	if sliceQP < MinSliceQP || sliceQP > MaxSliceQP {
		panic(fmt.Sprintf("ctxtable: slice QP %d outside [%d, %d]", sliceQP, MinSliceQP, MaxSliceQP))
	}
	iv := &initValues[it]
	for i := range t.ctx {
		t.ctx[i].Init(iv[i], sliceQP)
	}
}

// Ctx returns context inc of element e. It panics if inc is outside the
// element's range.
func (t *Table) Ctx(e Element, inc int) *cabac.Context {
	if uint(inc) >= uint(e.Count()) {
		panic(fmt.Sprintf("ctxtable: %v increment %d outside [0, %d)", e, inc, e.Count()))
	}
	return &t.ctx[offsets[e]+inc]
}

// Snapshot copies the current contexts.
func (t *Table) Snapshot() Snapshot {
	return Snapshot{ctx: t.ctx}
}

// Restore replaces the contexts with a snapshot.
func (t *Table) Restore(s Snapshot) {
	t.ctx = s.ctx
}

// At returns the context at flat index i.
func (t *Table) At(i int) *cabac.Context {
	return &t.ctx[i]
}

// IndexOf returns the flat index of c within t, or -1 if c belongs to
// another table.
func (t *Table) IndexOf(c *cabac.Context) int {
	for i := range t.ctx {
		if &t.ctx[i] == c {
			return i
		}
	}
	return -1
}
