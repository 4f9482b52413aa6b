// Package metrics defines the Prometheus collectors updated while decoding.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the decode counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	SegmentsStarted prometheus.Counter
	BlocksDecoded   *prometheus.CounterVec
	CoeffsDecoded   prometheus.Counter
	MalformedSyntax *prometheus.CounterVec
	StreamExhausted prometheus.Counter
	WavefrontRows   prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SegmentsStarted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hevc_segments_started_total",
				Help: "Number of decoding segments initialized.",
			},
		),
		BlocksDecoded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hevc_transform_blocks_decoded_total",
				Help: "Number of residual blocks decoded, by colour channel.",
			},
			[]string{"channel"},
		),
		CoeffsDecoded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hevc_coefficients_decoded_total",
				Help: "Number of non-zero coefficients decoded.",
			},
		),
		MalformedSyntax: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hevc_malformed_syntax_total",
				Help: "Number of malformed syntax elements replaced by zero.",
			},
			[]string{"element"},
		),
		StreamExhausted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hevc_stream_exhausted_total",
				Help: "Number of segments that ran past the end of their payload.",
			},
		),
		WavefrontRows: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hevc_wavefront_rows_decoded_total",
				Help: "Number of CTB rows decoded by the wavefront scheduler.",
			},
		),
	}
}

var channelNames = [3]string{"luma", "cb", "cr"}

// Block records one decoded residual block of colour component cIdx with
// n non-zero coefficients.
func (m *Metrics) Block(cIdx, n int) {
	if m == nil {
		return
	}
	name := "unknown"
	if cIdx >= 0 && cIdx < len(channelNames) {
		name = channelNames[cIdx]
	}
	m.BlocksDecoded.WithLabelValues(name).Inc()
	m.CoeffsDecoded.Add(float64(n))
}

// Malformed records a malformed value of the named syntax element.
func (m *Metrics) Malformed(element string) {
	if m == nil {
		return
	}
	m.MalformedSyntax.WithLabelValues(element).Inc()
}

// Segment records a segment start.
func (m *Metrics) Segment() {
	if m == nil {
		return
	}
	m.SegmentsStarted.Inc()
}

// Exhausted records a segment that failed with an exhausted stream.
func (m *Metrics) Exhausted() {
	if m == nil {
		return
	}
	m.StreamExhausted.Inc()
}

// Row records one CTB row finished by the wavefront scheduler.
func (m *Metrics) Row() {
	if m == nil {
		return
	}
	m.WavefrontRows.Inc()
}
