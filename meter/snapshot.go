package meter

import (
	"math"
	"sync/atomic"
)

// Snapshot is a value-type readout of every meter class for one
// channel set, produced by the audio thread and consumed by any thread
// (§3 "Meter snapshot"). Callers must not assume sequential reads form
// a coherent time series beyond "each snapshot corresponds to one
// audio-thread block" (§9).
type Snapshot struct {
	PeakLinear    []float64
	PeakDB        []float64
	RMSLinear     []float64
	ClipFlags     []bool
	Correlation   float64
	MomentaryLUFS float64
	ShortTermLUFS float64
	IntegratedLUFS float64
	LoudnessRangeLU float64
	TruePeakDBFS  float64
}

// Processor composes a PeakMeter + RMSMeter per channel, a
// CorrelationMeter (when channels == 2), and an LUFSMeter, publishing a
// Snapshot through an atomic pointer so reads never block on the audio
// thread's writer (§5 "Meter snapshots").
type Processor struct {
	channels   int
	sampleRate float64

	peaks []*PeakMeter
	rmss  []*RMSMeter
	corr  *CorrelationMeter
	lufs  *LUFSMeter

	// buffers holds the atomic-swapped snapshot pair (§4.C "Reads are
	// lock-free via an atomic-swapped snapshot pair"): the audio thread
	// writes into whichever of the two is not currently published, then
	// swaps current to point at it. Both are allocated at construction
	// and allocated afresh only by Reset.
	buffers [2]*Snapshot
	current atomic.Pointer[Snapshot]

	scratch []float32 // reused per-channel de-interleave scratch
}

// NewProcessor constructs a metering pipeline for channels channels at
// sampleRate, using the given BS.1770 channel layout for LUFS weighting
// (pass nil to default to L/R for stereo, center for mono).
func NewProcessor(channels int, sampleRate float64, layout []Channel) *Processor {
	if layout == nil {
		layout = defaultLayout(channels)
	}
	p := &Processor{channels: channels, sampleRate: sampleRate}
	p.peaks = make([]*PeakMeter, channels)
	p.rmss = make([]*RMSMeter, channels)
	for i := 0; i < channels; i++ {
		p.peaks[i] = NewPeakMeter(sampleRate)
		p.rmss[i] = NewRMSMeter(sampleRate, 300)
	}
	if channels == 2 {
		p.corr = NewCorrelationMeter(sampleRate, 300)
	}
	p.lufs = NewLUFSMeter(sampleRate, layout)
	p.buffers[0] = emptySnapshot(channels)
	p.buffers[1] = emptySnapshot(channels)
	p.current.Store(p.buffers[0])
	return p
}

func defaultLayout(channels int) []Channel {
	switch channels {
	case 1:
		return []Channel{ChannelCenter}
	case 2:
		return []Channel{ChannelLeft, ChannelRight}
	default:
		layout := make([]Channel, channels)
		for i := range layout {
			layout[i] = ChannelLeft
		}
		return layout
	}
}

func emptySnapshot(channels int) *Snapshot {
	s := &Snapshot{
		PeakLinear: make([]float64, channels),
		PeakDB:     make([]float64, channels),
		RMSLinear:  make([]float64, channels),
		ClipFlags:  make([]bool, channels),
	}
	for i := range s.PeakDB {
		s.PeakDB[i] = -70
	}
	s.MomentaryLUFS = silenceFloorLUFS
	s.ShortTermLUFS = silenceFloorLUFS
	s.IntegratedLUFS = silenceFloorLUFS
	s.TruePeakDBFS = silenceFloorLUFS
	return s
}

// WriteBlock processes one block of channel-interleaved samples
// (matching dawcore.Buffer's layout) and publishes a Snapshot. Both
// halves of the double-buffer are reused on every call; the
// de-interleave scratch slice is allocated on the first call and again
// only when a larger block arrives. This path does allocate: the LUFS
// stage makes a per-call frame slice in LUFSMeter.WriteBlock, and its
// loudness histories grow as each 100ms block completes.
func (p *Processor) WriteBlock(channels, frames int, interleaved []float32) {
	if channels != p.channels {
		panic("meter: channel count mismatch")
	}
	if cap(p.scratch) < frames {
		p.scratch = make([]float32, frames)
	}
	chanSamples := p.scratch[:frames]

	published := p.current.Load()
	snap := p.buffers[0]
	if snap == published {
		snap = p.buffers[1]
	}

	for c := 0; c < channels; c++ {
		for f := 0; f < frames; f++ {
			chanSamples[f] = interleaved[f*channels+c]
		}
		p.peaks[c].WriteBlock(chanSamples)
		for _, s := range chanSamples {
			p.rmss[c].Write(float64(s))
		}
		snap.PeakLinear[c] = p.peaks[c].HeldPeak()
		snap.PeakDB[c] = dbFromLinear(p.peaks[c].HeldPeak())
		snap.RMSLinear[c] = p.rmss[c].Value()
		snap.ClipFlags[c] = p.peaks[c].Clipped()
	}

	if p.corr != nil {
		for f := 0; f < frames; f++ {
			p.corr.Write(float64(interleaved[f*channels+0]), float64(interleaved[f*channels+1]))
		}
		snap.Correlation = p.corr.Value()
	}

	p.lufs.WriteBlock(channels, frames, interleaved)
	snap.MomentaryLUFS = p.lufs.MomentaryLUFS()
	snap.ShortTermLUFS = p.lufs.ShortTermLUFS()
	snap.IntegratedLUFS = p.lufs.IntegratedLUFS()
	snap.LoudnessRangeLU = p.lufs.LoudnessRange()
	snap.TruePeakDBFS = p.lufs.TruePeakDBFS()

	p.current.Store(snap)
}

func dbFromLinear(linear float64) float64 {
	if linear <= 0 {
		return -70
	}
	db := 20 * math.Log10(linear)
	if db < -70 {
		return -70
	}
	return db
}

// Snapshot returns the most recently published Snapshot. Safe to call
// from any thread without locking.
func (p *Processor) Snapshot() *Snapshot {
	return p.current.Load()
}

// Reset clears every constituent meter's accumulated state.
func (p *Processor) Reset() {
	for _, pk := range p.peaks {
		pk.Reset()
	}
	for _, r := range p.rmss {
		r.Reset()
	}
	if p.corr != nil {
		p.corr.Reset()
	}
	p.lufs.Reset()
	p.buffers[0] = emptySnapshot(p.channels)
	p.buffers[1] = emptySnapshot(p.channels)
	p.current.Store(p.buffers[0])
}
