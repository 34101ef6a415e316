package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullScaleSine(frames, channels int, sampleRate, freq float64) []float64 {
	out := make([]float64, frames*channels)
	for f := 0; f < frames; f++ {
		v := math.Sin(2 * math.Pi * freq * float64(f) / sampleRate)
		for c := 0; c < channels; c++ {
			out[f*channels+c] = v
		}
	}
	return out
}

func TestMeasureLoudnessOfSilenceIsFloor(t *testing.T) {
	samples := make([]float64, 48000*2)
	analysis := measureLoudness(samples, 2, 48000, 48000)
	assert.Equal(t, -70.0, analysis.IntegratedLUFS)
}

func TestMeasureLoudnessOfFullScaleSineIsLouderThanQuietSine(t *testing.T) {
	loud := fullScaleSine(48000, 2, 48000, 1000)
	quiet := make([]float64, len(loud))
	for i, v := range loud {
		quiet[i] = v * 0.1
	}

	loudAnalysis := measureLoudness(loud, 2, 48000, 48000)
	quietAnalysis := measureLoudness(quiet, 2, 48000, 48000)

	assert.Greater(t, loudAnalysis.IntegratedLUFS, quietAnalysis.IntegratedLUFS)
}

func TestNormalizePeakScalesToTargetLevel(t *testing.T) {
	samples := []float64{0.25, -0.5, 0.1}
	normalizePeak(samples, -6.0206) // half amplitude

	var peak float64
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	assert.InDelta(t, 0.5, peak, 1e-3)
}

func TestNormalizePeakLeavesSilenceUntouched(t *testing.T) {
	samples := []float64{0, 0, 0}
	normalizePeak(samples, -6.0)
	assert.Equal(t, []float64{0, 0, 0}, samples)
}

func TestMeasureLoudnessFlagsClippingPositions(t *testing.T) {
	samples := fullScaleSine(4800, 1, 48000, 1000)
	for i := range samples {
		samples[i] *= 1.5 // drive above full scale
	}
	analysis := measureLoudness(samples, 1, 4800, 48000)
	assert.NotEmpty(t, analysis.ClippingPositions)
}
