package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRampProducesEndpoints(t *testing.T) {
	l := NewLane(testID(), 0)
	require.NoError(t, GenerateRamp(l, 0, 44100, 0.2, 0.8))
	require.Equal(t, 2, l.Len())
	assert.InDelta(t, 0.2, l.ValueAt(0), 1e-9)
	assert.InDelta(t, 0.8, l.ValueAt(44100), 1e-9)
}

func TestGenerateFadeInStartsSilent(t *testing.T) {
	l := NewLane(testID(), 0)
	require.NoError(t, GenerateFadeIn(l, 0, 44100, 1.0))
	assert.InDelta(t, 0.0, l.ValueAt(0), 1e-9)
	assert.InDelta(t, 1.0, l.ValueAt(44100), 1e-9)
}

func TestGenerateLFOStaysWithinDepthBounds(t *testing.T) {
	l := NewLane(testID(), 0.5)
	require.NoError(t, GenerateLFO(l, LFOSine, 0, 44100, 1.0, 44100, 0.5, 0.4, 512))
	for _, p := range l.Points() {
		assert.GreaterOrEqual(t, p.Value, 0.3-1e-9)
		assert.LessOrEqual(t, p.Value, 0.7+1e-9)
	}
}

func TestGenerateGatePatternAlternatesOnOff(t *testing.T) {
	l := NewLane(testID(), 0)
	require.NoError(t, GenerateGatePattern(l, 0, 1000, 200, 200, 1.0, 0.0))
	assert.Greater(t, l.Len(), 1)
	assert.Equal(t, 1.0, l.Points()[0].Value)
}

func TestLFOValueBoundedForAllShapes(t *testing.T) {
	for _, shape := range []LFOShape{LFOSine, LFOTriangle, LFOSawtooth, LFOSquare} {
		for i := 0; i < 100; i++ {
			v := lfoValue(shape, float64(i)/100)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
