package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveforge/dawcore"
)

// gainEffect is a minimal dawcore.Effect used to exercise the chain
// dispatch and bypass skip without pulling in a real plugin.
type gainEffect struct {
	gain     float32
	bypassed bool
}

func (g *gainEffect) Process(in, out *dawcore.Buffer, blockStartSamples int64, nFrames int) {
	for c := 0; c < in.Channels(); c++ {
		for f := 0; f < nFrames; f++ {
			out.Set(c, f, in.At(c, f)*g.gain)
		}
	}
}
func (g *gainEffect) LatencySamples() uint32 { return 0 }
func (g *gainEffect) SetBypass(bypass bool)  { g.bypassed = bypass }
func (g *gainEffect) Bypassed() bool         { return g.bypassed }

func fillConstant(buf *dawcore.Buffer, nFrames int, v float32) {
	buf.SetFrames(nFrames)
	for c := 0; c < buf.Channels(); c++ {
		for f := 0; f < nFrames; f++ {
			buf.Set(c, f, v)
		}
	}
}

func TestBusProcessIdentityPassthrough(t *testing.T) {
	// Mono, so no pan law applies (a stereo bus at center pan scales each
	// side by sqrt(0.5)).
	b := NewBus(1, "test", BusGroup, 1, 0)
	in := dawcore.NewBuffer(1, 64)
	out := dawcore.NewBuffer(1, 64)
	fillConstant(in, 64, 0.5)

	b.Process(in, out, 0, 64)

	for f := 0; f < 64; f++ {
		assert.InDelta(t, 0.5, float64(out.At(0, f)), 1e-5)
		assert.InDelta(t, float64(in.At(0, f)), float64(out.At(0, f)), 1e-5)
	}
	assert.True(t, b.Active())
	assert.EqualValues(t, 64, b.SamplesProcessed())
}

func TestBusProcessMutedBusIsSilent(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 2, 0)
	b.Mute.Store(true)
	in := dawcore.NewBuffer(2, 32)
	out := dawcore.NewBuffer(2, 32)
	fillConstant(in, 32, 1.0)

	b.Process(in, out, 0, 32)

	for f := 0; f < 32; f++ {
		assert.Zero(t, out.At(0, f))
	}
	assert.False(t, b.Active())
}

func TestBusProcessGainAppliesLinearScaling(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	b.SetGainDB(-6.0206) // half amplitude
	in := dawcore.NewBuffer(1, 16)
	out := dawcore.NewBuffer(1, 16)
	fillConstant(in, 16, 1.0)

	b.Process(in, out, 0, 16)

	assert.InDelta(t, 0.5, float64(out.At(0, 0)), 1e-3)
}

func TestBusProcessSkipsBypassedEffect(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	eff := &gainEffect{gain: 0.5, bypassed: true}
	b.AddEffect(eff)
	in := dawcore.NewBuffer(1, 8)
	out := dawcore.NewBuffer(1, 8)
	fillConstant(in, 8, 1.0)

	b.Process(in, out, 0, 8)

	assert.InDelta(t, 1.0, float64(out.At(0, 0)), 1e-6)

	eff.SetBypass(false)
	b.Process(in, out, 0, 8)
	assert.InDelta(t, 0.5, float64(out.At(0, 0)), 1e-6)
}

func TestBusSoloOverrideMuteSuppressesOutputWhenNotSoloed(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	b.soloOverrideMute.Store(true)
	in := dawcore.NewBuffer(1, 8)
	out := dawcore.NewBuffer(1, 8)
	fillConstant(in, 8, 1.0)

	b.Process(in, out, 0, 8)
	assert.Zero(t, out.At(0, 0))

	b.Solo.Store(true)
	b.Process(in, out, 0, 8)
	assert.InDelta(t, 1.0, float64(out.At(0, 0)), 1e-6)
}

func TestBusDelaySamplesImpulseResponse(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	b.SetDelaySamples(4)
	require.Equal(t, 4, b.DelaySamples())

	in := dawcore.NewBuffer(1, 16)
	out := dawcore.NewBuffer(1, 16)
	in.SetFrames(16)
	in.Set(0, 0, 1.0)

	b.Process(in, out, 0, 16)

	for f := 0; f < 16; f++ {
		if f == 4 {
			assert.InDelta(t, 1.0, float64(out.At(0, f)), 1e-6)
		} else {
			assert.Zero(t, out.At(0, f))
		}
	}
}

func TestBusAddAndRemoveEffect(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	e1 := &gainEffect{gain: 1}
	e2 := &gainEffect{gain: 1}
	b.AddEffect(e1)
	b.AddEffect(e2)
	require.Len(t, b.Effects(), 2)

	b.RemoveEffectAt(0)
	got := b.Effects()
	require.Len(t, got, 1)
	assert.Same(t, e2, got[0])
}

func TestBusOutputsDefaultsToMasterRoute(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 2, 7)
	outs := b.Outputs()
	require.Len(t, outs, 1)
	assert.Equal(t, BusID(7), outs[0].DestinationID)
	assert.Equal(t, DestMasterOut, outs[0].Kind)
}

func TestMasterBusHasNoDefaultOutput(t *testing.T) {
	b := NewBus(0, "master", BusMaster, 2, 0)
	assert.Empty(t, b.Outputs())
}

func TestBusSetGainDBClampsToRange(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	b.SetGainDB(500)
	assert.Equal(t, 20.0, b.GainDB())
	b.SetGainDB(-200)
	assert.Equal(t, -70.0, b.GainDB())
}

func TestBusSetPanClampsToRange(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	b.SetPan(5)
	assert.Equal(t, 1.0, b.Pan())
	b.SetPan(-5)
	assert.Equal(t, -1.0, b.Pan())
}

func TestBusSetTrimDBClampsToRange(t *testing.T) {
	b := NewBus(1, "test", BusGroup, 1, 0)
	b.SetTrimDB(500)
	assert.Equal(t, 20.0, b.TrimDB())
	b.SetTrimDB(-200)
	assert.Equal(t, -70.0, b.TrimDB())
}
