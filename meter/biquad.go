// Package meter implements the peak/RMS/LUFS/true-peak/correlation
// metering pipeline (§4.C). The peak, RMS, correlation and true-peak
// meters do not allocate in their Write paths once constructed;
// LUFSMeter does (a per-call frame slice in WriteBlock and growing
// loudness histories). Processor publishes readouts through an
// atomically double-buffered Snapshot so any thread can read without
// locking.
package meter

import "math"

// biquadCoeffs holds a Direct Form I biquad's transfer-function
// coefficients (b0,b1,b2 / a1,a2, with a0 normalized to 1).
type biquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// biquadSection is a single biquad stage with its own state, so the
// K-weighting cascade can run one independent section per channel.
type biquadSection struct {
	c          biquadCoeffs
	x1, x2     float64
	y1, y2     float64
}

func newBiquadSection(c biquadCoeffs) *biquadSection {
	return &biquadSection{c: c}
}

func (s *biquadSection) Reset() {
	s.x1, s.x2, s.y1, s.y2 = 0, 0, 0, 0
}

func (s *biquadSection) Process(x float64) float64 {
	y := s.c.b0*x + s.c.b1*s.x1 + s.c.b2*s.x2 - s.c.a1*s.y1 - s.c.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

// highpassCoeffs designs an RBJ-style biquad high-pass at frequency hz
// with quality q, at the given sample rate. Used for the 38 Hz, Q=0.5
// stage of the K-weighting filter (§4.C.1).
func highpassCoeffs(hz, q, sampleRate float64) biquadCoeffs {
	w0 := 2 * math.Pi * hz / sampleRate
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	alpha := sinw0 / (2 * q)

	b0 := (1 + cosw0) / 2
	b1 := -(1 + cosw0)
	b2 := (1 + cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return biquadCoeffs{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// highShelfCoeffs designs an RBJ-style high-frequency shelf biquad at
// frequency hz with gainDB boost and quality q. Used for the 1500 Hz,
// +4 dB, Q=0.707 stage of the K-weighting filter (§4.C.1).
func highShelfCoeffs(hz, gainDB, q, sampleRate float64) biquadCoeffs {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * hz / sampleRate
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	alpha := sinw0 / (2 * q)
	twoSqrtAAlpha := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosw0 + twoSqrtAAlpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosw0)
	b2 := a * ((a + 1) + (a-1)*cosw0 - twoSqrtAAlpha)
	a0 := (a + 1) - (a-1)*cosw0 + twoSqrtAAlpha
	a1 := 2 * ((a - 1) - (a+1)*cosw0)
	a2 := (a + 1) - (a-1)*cosw0 - twoSqrtAAlpha

	return biquadCoeffs{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// kWeightingFilter is the two-stage cascade (highpass then shelf) of
// §4.C.1, one instance per channel.
type kWeightingFilter struct {
	hpf   *biquadSection
	shelf *biquadSection
}

func newKWeightingFilter(sampleRate float64) *kWeightingFilter {
	return &kWeightingFilter{
		hpf:   newBiquadSection(highpassCoeffs(38.0, 0.5, sampleRate)),
		shelf: newBiquadSection(highShelfCoeffs(1500.0, 4.0, 1/math.Sqrt2, sampleRate)),
	}
}

func (k *kWeightingFilter) Process(x float64) float64 {
	return k.shelf.Process(k.hpf.Process(x))
}

func (k *kWeightingFilter) Reset() {
	k.hpf.Reset()
	k.shelf.Reset()
}
