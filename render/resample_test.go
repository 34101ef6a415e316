package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResampleIsNoOpWhenRatesMatch(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3, 0.4}
	out, frames := Resample(in, 2, 2, 48000, 48000, 5)
	assert.Equal(t, 2, frames)
	assert.Equal(t, in, out)
}

func TestResampleProducesExpectedFrameCount(t *testing.T) {
	frames := 4800
	in := make([]float64, frames)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 48000)
	}
	out, outFrames := Resample(in, 1, frames, 48000, 44100, 8)
	assert.InDelta(t, frames*44100/48000, outFrames, 2)
	assert.Len(t, out, outFrames)
}

func TestResampleUpsamplePreservesLowFrequencyShape(t *testing.T) {
	frames := 480
	in := make([]float64, frames)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 100 * float64(i) / 48000)
	}
	out, outFrames := Resample(in, 1, frames, 48000, 96000, 8)
	assert.Equal(t, frames*2, outFrames)

	for _, v := range out {
		assert.LessOrEqual(t, math.Abs(v), 1.05)
	}
}

func TestResampleHalfWidthClampsToRange(t *testing.T) {
	assert.Equal(t, resampleHalfWidth(0), resampleHalfWidth(1))
	assert.Equal(t, resampleHalfWidth(50), resampleHalfWidth(10))
	assert.Greater(t, resampleHalfWidth(10), resampleHalfWidth(1))
}
