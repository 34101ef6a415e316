package mixer

import (
	"sync"
	"sync/atomic"

	"github.com/waveforge/dawcore"
	"github.com/waveforge/dawcore/meter"
)

// BusID identifies a bus within a Manager's graph.
type BusID uint32

// BusType selects a bus's role in the mixer (§3).
type BusType int

const (
	BusAuxSend BusType = iota
	BusGroup
	BusMaster
	BusMonitor
)

const activeThresholdLinear = 0.001 // -60dBFS, per §4.G step 7

// Bus is one node in the mixer's signal-flow graph: an input-summed
// channel strip, PDC delay line, effect chain, gain/pan stage, and
// metering tap (§4.G).
type Bus struct {
	ID      BusID
	Name    string
	Type    BusType
	Channels int

	gainDB      atomicFloat64
	pan         atomicFloat64
	Mute        atomic.Bool
	Solo        atomic.Bool
	RecordArm   atomic.Bool
	soloOverrideMute atomic.Bool

	trimDB      atomicFloat64
	PhaseInvert atomic.Bool
	HPFEnabled  atomic.Bool
	HPFFreqHz   atomicFloat64

	MeteringEnabled atomic.Bool
	Meter           *meter.Processor

	samplesProcessed atomic.Uint64
	active           atomic.Bool

	outputsMu sync.RWMutex
	outputs   []RouteDestination

	effects atomic.Pointer[[]dawcore.Effect]

	delay atomic.Pointer[delayLine]

	strip *channelStrip

	working *dawcore.Buffer
}

// NewBus constructs a bus with unity gain, centered pan, no effects,
// metering enabled, and (for non-master buses) a default route to
// masterID.
func NewBus(id BusID, name string, busType BusType, channels int, masterID BusID) *Bus {
	b := &Bus{
		ID:       id,
		Name:     name,
		Type:     busType,
		Channels: channels,
		strip:    newChannelStrip(channels),
		working:  dawcore.NewBuffer(channels, 8192),
	}
	b.HPFFreqHz.Store(80)
	b.MeteringEnabled.Store(true)
	empty := []dawcore.Effect{}
	b.effects.Store(&empty)
	b.delay.Store(newDelayLine(channels, 0))
	if busType != BusMaster {
		b.outputs = []RouteDestination{NewMasterRoute(masterID)}
	}
	return b
}

// Outputs returns a snapshot of the bus's output routes.
func (b *Bus) Outputs() []RouteDestination {
	b.outputsMu.RLock()
	defer b.outputsMu.RUnlock()
	out := make([]RouteDestination, len(b.outputs))
	copy(out, b.outputs)
	return out
}

// AddOutput appends dest to the bus's routing table.
func (b *Bus) AddOutput(dest RouteDestination) {
	b.outputsMu.Lock()
	defer b.outputsMu.Unlock()
	b.outputs = append(b.outputs, dest)
}

// RemoveOutput deletes every route targeting destinationID.
func (b *Bus) RemoveOutput(destinationID BusID) {
	b.outputsMu.Lock()
	defer b.outputsMu.Unlock()
	kept := b.outputs[:0]
	for _, o := range b.outputs {
		if o.DestinationID != destinationID {
			kept = append(kept, o)
		}
	}
	b.outputs = kept
}

// AddEffect appends effect to the end of the processing chain.
func (b *Bus) AddEffect(effect dawcore.Effect) {
	old := *b.effects.Load()
	next := make([]dawcore.Effect, len(old)+1)
	copy(next, old)
	next[len(old)] = effect
	b.effects.Store(&next)
}

// RemoveEffectAt removes the effect at index i, if in range.
func (b *Bus) RemoveEffectAt(i int) {
	old := *b.effects.Load()
	if i < 0 || i >= len(old) {
		return
	}
	next := make([]dawcore.Effect, 0, len(old)-1)
	next = append(next, old[:i]...)
	next = append(next, old[i+1:]...)
	b.effects.Store(&next)
}

// Effects returns a snapshot of the current effect chain.
func (b *Bus) Effects() []dawcore.Effect {
	return *b.effects.Load()
}

// SetGainDB sets the bus's fader gain, clamped to [-70,+20] dB (§3).
func (b *Bus) SetGainDB(db float64) { b.gainDB.Store(dawcore.ClampGainDB(db)) }

// GainDB returns the bus's current fader gain in dB.
func (b *Bus) GainDB() float64 { return b.gainDB.Load() }

// SetPan sets the bus's pan position, clamped to [-1,+1] (§3).
func (b *Bus) SetPan(pan float64) { b.pan.Store(dawcore.ClampPan(pan)) }

// Pan returns the bus's current pan position.
func (b *Bus) Pan() float64 { return b.pan.Load() }

// SetTrimDB sets the bus's input trim gain, clamped to [-70,+20] dB
// (§3, same range as the fader gain it stacks with).
func (b *Bus) SetTrimDB(db float64) { b.trimDB.Store(dawcore.ClampGainDB(db)) }

// TrimDB returns the bus's current input trim gain in dB.
func (b *Bus) TrimDB() float64 { return b.trimDB.Load() }

// SetDelaySamples resizes the PDC delay line, carrying forward as much
// existing content as fits (§4.G "delay compensation setter").
func (b *Bus) SetDelaySamples(samples int) {
	if samples < 0 {
		samples = 0
	}
	next := newDelayLine(b.Channels, samples)
	next.carryFrom(b.delay.Load())
	b.delay.Store(next)
}

// DelaySamples returns the bus's current PDC delay in samples.
func (b *Bus) DelaySamples() int {
	d := b.delay.Load()
	if d == nil {
		return 0
	}
	return d.size
}

// SetHPF configures the high-pass filter ahead of the effect chain.
func (b *Bus) SetHPF(enabled bool, freqHz, sampleRate float64) {
	b.HPFEnabled.Store(enabled)
	b.HPFFreqHz.Store(freqHz)
	b.strip.ensureChannels(b.Channels)
	b.strip.setCoeffs(designHPF(freqHz, 0.707, sampleRate))
}

// SamplesProcessed returns the cumulative number of frames this bus has
// processed.
func (b *Bus) SamplesProcessed() uint64 { return b.samplesProcessed.Load() }

// Active reports whether the bus's most recent block carried signal
// above the activity threshold (§4.G step 7).
func (b *Bus) Active() bool { return b.active.Load() }

// Process implements the §4.G processing steps. in holds the
// already-summed input for this block; out receives the bus's post-fader
// signal.
func (b *Bus) Process(in *dawcore.Buffer, out *dawcore.Buffer, blockStartSamples int64, nFrames int) {
	out.SetFrames(nFrames)

	muted := b.Mute.Load() || b.soloOverrideMute.Load()
	soloed := b.Solo.Load()
	if muted && !soloed {
		out.Clear()
		b.samplesProcessed.Add(uint64(nFrames))
		b.active.Store(false)
		return
	}

	b.working.EnsureFrames(nFrames)
	b.working.SetFrames(nFrames)
	b.working.CopyFrom(in)

	trimLinear := dawcore.DBToLinear(b.trimDB.Load())
	invert := b.PhaseInvert.Load()
	hpfOn := b.HPFEnabled.Load()
	for c := 0; c < b.Channels; c++ {
		for f := 0; f < nFrames; f++ {
			v := float64(b.working.At(c, f)) * trimLinear
			if invert {
				v = -v
			}
			if hpfOn {
				v = b.strip.process(c, v)
			}
			b.working.Set(c, f, float32(v))
		}
	}

	dl := b.delay.Load()
	for f := 0; f < nFrames; f++ {
		for c := 0; c < b.Channels; c++ {
			delayed := dl.step(c, b.working.At(c, f))
			b.working.Set(c, f, delayed)
		}
		dl.advance()
	}

	for _, eff := range b.Effects() {
		if eff.Bypassed() {
			continue
		}
		eff.Process(b.working, b.working, blockStartSamples, nFrames)
	}

	gainLinear := dawcore.DBToLinear(b.gainDB.Load())
	pan := b.pan.Load()
	switch {
	case b.Channels == 2:
		left, right := dawcore.EqualPowerPan(pan)
		for f := 0; f < nFrames; f++ {
			out.Set(0, f, b.working.At(0, f)*float32(gainLinear*left))
			out.Set(1, f, b.working.At(1, f)*float32(gainLinear*right))
		}
	case b.Channels == 1:
		for f := 0; f < nFrames; f++ {
			out.Set(0, f, b.working.At(0, f)*float32(gainLinear))
		}
	default:
		for c := 0; c < b.Channels; c++ {
			for f := 0; f < nFrames; f++ {
				out.Set(c, f, b.working.At(c, f)*float32(gainLinear))
			}
		}
	}

	if b.MeteringEnabled.Load() && b.Meter != nil {
		b.Meter.WriteBlock(b.Channels, nFrames, out.Raw())
	}

	b.samplesProcessed.Add(uint64(nFrames))
	b.active.Store(out.PeakAbs() > activeThresholdLinear)
}
