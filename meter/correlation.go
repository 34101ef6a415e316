package meter

import "math"

// varianceFloor is the threshold below which correlation is defined as
// zero rather than an unstable ratio (§4.C).
const varianceFloor = 1e-10

// CorrelationMeter maintains a sliding window of paired (L,R) samples
// and computes Pearson's correlation coefficient over that window.
type CorrelationMeter struct {
	left, right []float64
	writeIdx    int
	filled      int

	sumL, sumR, sumLR, sumLL, sumRR float64
}

// NewCorrelationMeter constructs a correlation meter with a sliding
// window of windowMs milliseconds at the given sample rate.
func NewCorrelationMeter(sampleRate, windowMs float64) *CorrelationMeter {
	n := int(windowMs / 1000.0 * sampleRate)
	if n < 1 {
		n = 1
	}
	return &CorrelationMeter{
		left:  make([]float64, n),
		right: make([]float64, n),
	}
}

// Write pushes one stereo sample pair into the sliding window.
func (m *CorrelationMeter) Write(l, r float64) {
	i := m.writeIdx
	oldL, oldR := m.left[i], m.right[i]

	m.sumL += l - oldL
	m.sumR += r - oldR
	m.sumLR += l*r - oldL*oldR
	m.sumLL += l*l - oldL*oldL
	m.sumRR += r*r - oldR*oldR

	m.left[i] = l
	m.right[i] = r
	m.writeIdx = (i + 1) % len(m.left)
	if m.filled < len(m.left) {
		m.filled++
	}
}

// Value returns Pearson's correlation coefficient in [-1, +1], or 0
// when variance is below the 1e-10 floor (§4.C).
func (m *CorrelationMeter) Value() float64 {
	if m.filled == 0 {
		return 0
	}
	n := float64(m.filled)
	meanL := m.sumL / n
	meanR := m.sumR / n

	covar := m.sumLR/n - meanL*meanR
	varL := m.sumLL/n - meanL*meanL
	varR := m.sumRR/n - meanR*meanR

	denom := varL * varR
	if denom < varianceFloor {
		return 0
	}
	coeff := covar / math.Sqrt(denom)
	if coeff > 1 {
		return 1
	}
	if coeff < -1 {
		return -1
	}
	return coeff
}

// Reset clears the sliding window.
func (m *CorrelationMeter) Reset() {
	for i := range m.left {
		m.left[i], m.right[i] = 0, 0
	}
	m.writeIdx, m.filled = 0, 0
	m.sumL, m.sumR, m.sumLR, m.sumLL, m.sumRR = 0, 0, 0, 0, 0
}
