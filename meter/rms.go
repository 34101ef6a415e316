package meter

import "math"

// RMSMeter maintains a sliding window of window_ms milliseconds as a
// running sum-of-squares over a FIFO of squared samples, giving O(1)
// per-sample updates (§4.C).
type RMSMeter struct {
	window    []float64
	writeIdx  int
	filled    int
	sumSq     float64
}

// NewRMSMeter constructs an RMS meter with a sliding window of windowMs
// milliseconds at the given sample rate. There is no default window;
// Processor passes 300ms.
func NewRMSMeter(sampleRate, windowMs float64) *RMSMeter {
	n := int(windowMs / 1000.0 * sampleRate)
	if n < 1 {
		n = 1
	}
	return &RMSMeter{window: make([]float64, n)}
}

// Write pushes one sample into the sliding window.
func (m *RMSMeter) Write(sample float64) {
	sq := sample * sample
	old := m.window[m.writeIdx]
	m.sumSq += sq - old
	m.window[m.writeIdx] = sq
	m.writeIdx = (m.writeIdx + 1) % len(m.window)
	if m.filled < len(m.window) {
		m.filled++
	}
}

// WriteBlock pushes a full block of samples from a single channel.
func (m *RMSMeter) WriteBlock(samples []float32) {
	for _, s := range samples {
		m.Write(float64(s))
	}
}

// Value returns the current RMS level (linear), computed over however
// many samples have been seen so far (up to the full window).
func (m *RMSMeter) Value() float64 {
	if m.filled == 0 {
		return 0
	}
	meanSq := m.sumSq / float64(m.filled)
	if meanSq < 0 {
		meanSq = 0 // guard against float accumulation drift
	}
	return math.Sqrt(meanSq)
}

// Reset clears the sliding window.
func (m *RMSMeter) Reset() {
	for i := range m.window {
		m.window[i] = 0
	}
	m.writeIdx, m.filled, m.sumSq = 0, 0, 0
}
