package dawcore

// Effect is the plugin/effect process-block interface required of each
// processor in a bus's effect chain (§6). Implementations must be
// PDC-aware: LatencySamples reports the processor's own algorithmic
// delay so the bus manager can sum it into the bus's total PDC.
//
// Process must be real-time safe: no allocation, no locks, no I/O.
type Effect interface {
	Process(in, out *Buffer, blockStartSamples int64, nFrames int)
	LatencySamples() uint32
	SetBypass(bypass bool)
	Bypassed() bool
}

// TrackSource is the track-source interface consumed by bus inputs
// (§6): a pull-model producer of pre-fader audio.
type TrackSource interface {
	Pull(blockStartSamples int64, nFrames int, out *Buffer) (samplesProduced int)
	ChannelCount() int
}

// AutomationHost is the single-method interface automation targets
// apply values through (§6). The automation engine holds only a weak
// (id-based) reference to hosts, never a strong owning reference.
type AutomationHost interface {
	Apply(parameterIndex uint32, normalizedValue float64)
}
