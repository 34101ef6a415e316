package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDithererNoneIsIdentityQuantization(t *testing.T) {
	d := NewDitherer(DitherNone, 16, 1)
	assert.EqualValues(t, 0, d.Quantize(0))
	assert.InDelta(t, 32767, d.Quantize(1.0), 1)
}

func TestDithererRectangularStaysWithinOneLSBOfInput(t *testing.T) {
	d := NewDitherer(DitherRectangularPDF, 16, 42)
	maxVal := float64(1<<15) - 1
	for i := 0; i < 1000; i++ {
		sample := 0.5
		q := d.Quantize(sample)
		assert.InDelta(t, sample*maxVal, float64(q), 2)
	}
}

func TestDithererNoiseShapingFeedsBackError(t *testing.T) {
	d := NewDitherer(DitherNoiseShaping, 8, 7)
	for i := 0; i < 100; i++ {
		d.Quantize(0.3)
	}
	assert.False(t, math.IsNaN(d.feedback))
}

func TestApplyDitheringNoOpWhenDisabled(t *testing.T) {
	samples := []float64{0.1, 0.2, 0.3, 0.4}
	original := append([]float64(nil), samples...)
	applyDithering(samples, 2, DitherNone, 16)
	assert.Equal(t, original, samples)
}

func TestApplyDitheringKeepsValuesInRange(t *testing.T) {
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = 0.9
	}
	applyDithering(samples, 2, DitherTriangularPDF, 16)
	for _, v := range samples {
		assert.LessOrEqual(t, v, 1.01)
		assert.GreaterOrEqual(t, v, -1.01)
	}
}
