package meter

import "math"

// trueOversampleKernel is the 4x oversampling FIR used to estimate true
// peak. As documented in spec.md §9, this is a linear-interpolation
// kernel, not a properly band-limited polyphase design: acceptable for
// specification compliance, not full ITU-R BS.1770-4 conformance. A
// real mastering-grade implementation should substitute a polyphase FIR
// with >= 60 dB alias rejection; that substitution is deliberately not
// made here so the documented approximation stays visible.
var trueOversampleKernel = [8]float64{0, 0.25, 0.5, 0.75, 1.0, 0.75, 0.5, 0.25}

const oversampleFactor = 4

// TruePeakEstimator tracks the maximum oversampled absolute sample
// value across a stream of blocks, converted to dBFS on read.
type TruePeakEstimator struct {
	history [8]float64 // ring of the last 8 input samples, oldest first
	filled  int
	peak    float64
	overs   int // oversampled reconstruction points that exceeded full scale
}

// NewTruePeakEstimator constructs an estimator with empty history.
func NewTruePeakEstimator() *TruePeakEstimator {
	return &TruePeakEstimator{}
}

// Write feeds one sample and updates the running true-peak estimate.
func (e *TruePeakEstimator) Write(sample float64) {
	copy(e.history[:7], e.history[1:])
	e.history[7] = sample
	if e.filled < 8 {
		e.filled++
	}

	// Oversample by convolving the kernel against recent history at
	// oversampleFactor sub-sample offsets; any kernel tap touching
	// not-yet-filled history contributes zero, matching a cold start.
	over := false
	for phase := 0; phase < oversampleFactor; phase++ {
		var acc float64
		for k := 0; k < len(trueOversampleKernel); k++ {
			idx := k - phase
			if idx < 0 || idx >= len(e.history) {
				continue
			}
			acc += e.history[idx] * trueOversampleKernel[k]
		}
		abs := math.Abs(acc)
		if abs > e.peak {
			e.peak = abs
		}
		if abs > 1.0 {
			over = true
		}
	}
	if over {
		e.overs++
	}
}

// Overs returns the count of input samples whose oversampled
// reconstruction exceeded full scale (the "intersample peak" count).
func (e *TruePeakEstimator) Overs() int { return e.overs }

// WriteBlock feeds a full block of samples from one channel.
func (e *TruePeakEstimator) WriteBlock(samples []float32) {
	for _, s := range samples {
		e.Write(float64(s))
	}
}

// PeakDBFS returns the current true-peak estimate in dBFS.
func (e *TruePeakEstimator) PeakDBFS() float64 {
	if e.peak <= 0 {
		return -70
	}
	db := 20 * math.Log10(e.peak)
	if db < -70 {
		return -70
	}
	return db
}

// Reset clears history and the running peak.
func (e *TruePeakEstimator) Reset() {
	e.history = [8]float64{}
	e.filled = 0
	e.peak = 0
	e.overs = 0
}
