package meter

import "math"

// clipThreshold is the sample magnitude at or above which a clip is
// flagged (§4.C: "clip flag raised when any sample >= 0.995").
const clipThreshold = 0.995

// PeakMeter tracks a fast-attack / slow-release peak level per channel,
// with a peak-hold timer that extends the displayed peak.
type PeakMeter struct {
	sampleRate    float64
	releaseMs     float64
	holdSeconds   float64
	releaseCoeff  float64

	level      float64 // current ballistic level (linear)
	held       float64 // peak-hold display value (linear)
	heldTimer  float64 // seconds remaining on the hold
	clipped    bool
}

// NewPeakMeter constructs a peak meter at the given sample rate, with
// the default 300ms release time constant and 1.5s peak hold.
func NewPeakMeter(sampleRate float64) *PeakMeter {
	m := &PeakMeter{
		sampleRate:  sampleRate,
		releaseMs:   300,
		holdSeconds: 1.5,
	}
	m.recomputeCoeff()
	return m
}

// SetReleaseMs changes the release time constant.
func (m *PeakMeter) SetReleaseMs(ms float64) {
	m.releaseMs = ms
	m.recomputeCoeff()
}

// SetHoldSeconds changes the peak-hold duration.
func (m *PeakMeter) SetHoldSeconds(s float64) { m.holdSeconds = s }

func (m *PeakMeter) recomputeCoeff() {
	// one-pole release coefficient for a 300ms (or configured) time constant
	m.releaseCoeff = math.Exp(-1.0 / (m.releaseMs / 1000.0 * m.sampleRate))
}

// WriteBlock processes a block of samples of a single, already
// de-interleaved channel and updates ballistic/held/clip state. The
// peak-hold timer is advanced by len(samples)/sampleRate seconds.
func (m *PeakMeter) WriteBlock(samples []float32) {
	blockSeconds := float64(len(samples)) / m.sampleRate
	for _, s := range samples {
		abs := math.Abs(float64(s))
		if abs >= clipThreshold {
			m.clipped = true
		}
		if abs > m.level {
			m.level = abs // fast attack: near-instantaneous
		} else {
			m.level = abs + (m.level-abs)*m.releaseCoeff
		}
	}
	if m.level > m.held {
		m.held = m.level
		m.heldTimer = m.holdSeconds
	} else {
		m.heldTimer -= blockSeconds
		if m.heldTimer <= 0 {
			m.held = m.level
			m.heldTimer = 0
		}
	}
}

// Peak returns the current ballistic peak level (linear).
func (m *PeakMeter) Peak() float64 { return m.level }

// HeldPeak returns the peak-hold display value (linear).
func (m *PeakMeter) HeldPeak() float64 { return m.held }

// Clipped returns whether a clip has been flagged since the last Reset.
func (m *PeakMeter) Clipped() bool { return m.clipped }

// Reset clears ballistic, held, and clip state.
func (m *PeakMeter) Reset() {
	m.level, m.held, m.heldTimer = 0, 0, 0
	m.clipped = false
}
