package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyLimiterBrickWallClampsToThreshold(t *testing.T) {
	samples := []float64{1.5, -1.5, 0.1, -0.1}
	applyLimiter(samples, 1, len(samples), 0, false)

	threshold := math.Pow(10, 0.0/20)
	assert.InDelta(t, threshold, samples[0], 1e-9)
	assert.InDelta(t, -threshold, samples[1], 1e-9)
	assert.InDelta(t, 0.1, samples[2], 1e-9)
}

func TestApplyLimiterLookaheadReducesGainAheadOfPeak(t *testing.T) {
	n := 300
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5
	}
	samples[100] = 2.0 // overshoot within the first sample's lookahead window

	applyLimiter(samples, 1, n, 0, true)

	for _, v := range samples {
		assert.LessOrEqual(t, math.Abs(v), 1.0001)
	}
	assert.Less(t, samples[0], 0.5) // lookahead pulled gain down ahead of the overshoot
}

func TestApplyLimiterNoOpWhenThresholdIsZeroOrBelow(t *testing.T) {
	samples := []float64{0.5, -0.5}
	applyLimiter(samples, 1, len(samples), -100, false)
	assert.Equal(t, []float64{0.5, -0.5}, samples)
}
