// Package syntax decodes the CABAC-coded syntax elements of HEVC slice
// data other than residual_coding.
//
// Each method reads one element with the binarization and context
// selection of ITU-T H.265 clause 9.3.4.2. Elements whose context depends
// on neighbouring blocks take the neighbour predicates as arguments; the
// caller owns the coding-tree walk that derives them.
package syntax

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deepteams/hevc/internal/cabac"
	"github.com/deepteams/hevc/internal/ctxtable"
)

// maxEGPrefix caps the unary prefix of Exp-Golomb codes.
const maxEGPrefix = 32

// Decoder reads syntax elements from a bin source with a context table.
type Decoder struct {
	bd        cabac.BinDecoder
	tbl       *ctxtable.Table
	log       zerolog.Logger
	malformed error

	onMalformed func(element string)
}

// NewDecoder returns a Decoder over bd and tbl. A zero logger discards
// malformed-syntax reports.
func NewDecoder(bd cabac.BinDecoder, tbl *ctxtable.Table, log zerolog.Logger) *Decoder {
	return &Decoder{bd: bd, tbl: tbl, log: log}
}

// Reset rebinds the decoder, e.g. after switching substreams, and clears
// any recorded malformed element.
func (d *Decoder) Reset(bd cabac.BinDecoder, tbl *ctxtable.Table) {
	d.bd = bd
	d.tbl = tbl
	d.malformed = nil
}

// Err returns the stream error of the bin source, if any, or else the
// first malformed element decoded since the last Reset or ClearMalformed.
func (d *Decoder) Err() error {
	if err := d.bd.Err(); err != nil {
		return err
	}
	return d.malformed
}

// ClearMalformed forgets a recorded malformed element.
func (d *Decoder) ClearMalformed() { d.malformed = nil }

// OnMalformed installs fn to be called with the element name of every
// malformed value, in addition to logging it.
func (d *Decoder) OnMalformed(fn func(element string)) { d.onMalformed = fn }

func (d *Decoder) reportMalformed(element string, prefix int) {
	d.log.Warn().Str("element", element).Int("prefix", prefix).Msg("malformed syntax element, using 0")
	if d.onMalformed != nil {
		d.onMalformed(element)
	}
	if d.malformed == nil {
		d.malformed = errors.Wrap(cabac.ErrMalformedSyntax, element)
	}
}

func (d *Decoder) decision(e ctxtable.Element, inc int) int {
	return d.bd.DecodeDecision(d.tbl.Ctx(e, inc))
}

func (d *Decoder) flag(e ctxtable.Element, inc int) bool {
	return d.decision(e, inc) == 1
}

// truncatedBypass decodes a truncated unary value of at most cMax with
// bypass bins.
func (d *Decoder) truncatedBypass(cMax int) int {
	v := 0
	for v < cMax && d.bd.DecodeBypass() == 1 {
		v++
	}
	return v
}

// expGolomb decodes a k-th order Exp-Golomb value with bypass bins.
func (d *Decoder) expGolomb(k int, element string) int {
	v := 0
	prefix := 0
	for d.bd.DecodeBypass() == 1 {
		v += 1 << uint(k)
		k++
		prefix++
		if prefix == maxEGPrefix || k > 31 {
			d.reportMalformed(element, prefix)
			return 0
		}
	}
	return v + int(d.bd.DecodeBypassBits(k))
}
