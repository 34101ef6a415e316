package meter

import (
	"math"
	"sort"
)

// Channel identifies a speaker position for BS.1770 channel weighting
// (§4.C.2).
type Channel int

const (
	ChannelLeft Channel = iota
	ChannelRight
	ChannelCenter
	ChannelLFE
	ChannelSurroundLeft
	ChannelSurroundRight
)

func channelWeight(ch Channel) float64 {
	switch ch {
	case ChannelLeft, ChannelRight, ChannelCenter:
		return 1.0
	case ChannelLFE:
		return 0.0
	case ChannelSurroundLeft, ChannelSurroundRight:
		return 1.41
	default:
		return 1.0
	}
}

const silenceFloorLUFS = -70.0

// meanSquareToLUFS converts a mean-square energy value to LUFS
// (§4.C.4): LUFS = -0.691 + 10*log10(mean_square), floored at -70.
func meanSquareToLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return silenceFloorLUFS
	}
	v := -0.691 + 10*math.Log10(meanSquare)
	if v < silenceFloorLUFS {
		return silenceFloorLUFS
	}
	return v
}

// LUFSMeter implements the EBU R128 / ITU-R BS.1770-4 loudness
// measurement pipeline (§4.C).
type LUFSMeter struct {
	sampleRate float64
	channels   []Channel

	kWeight    []*kWeightingFilter
	blockSize  int // sample_rate / 10, i.e. 100ms blocks
	blockPos   int
	blockEnergy float64 // accumulating sum of weighted squared samples this block

	momentaryBlocks  [] float64 // history of 100ms block energies, for 400ms sum
	shortTermBlocks  [] float64 // history of 100ms block energies, for 3s sum

	gatedBlocks []float64 // all completed block energies (for integrated gating)

	shortTermHistory []float64 // completed short-term LUFS measurements, for LRA

	truePeaks []*TruePeakEstimator
}

// NewLUFSMeter constructs a meter for the given sample rate and channel
// layout (order matters: index i of samples passed to Write corresponds
// to channels[i]).
func NewLUFSMeter(sampleRate float64, channels []Channel) *LUFSMeter {
	m := &LUFSMeter{
		sampleRate: sampleRate,
		channels:   channels,
		blockSize:  int(sampleRate / 10),
	}
	m.kWeight = make([]*kWeightingFilter, len(channels))
	m.truePeaks = make([]*TruePeakEstimator, len(channels))
	for i := range channels {
		m.kWeight[i] = newKWeightingFilter(sampleRate)
		m.truePeaks[i] = NewTruePeakEstimator()
	}
	return m
}

const (
	momentaryWindowBlocks = 4  // 400ms / 100ms
	shortTermWindowBlocks = 30 // 3s / 100ms
	absoluteGateLUFS      = -70.0
	relativeGateOffsetLU  = -10.0
	minMeasurementsForLRA = 10
)

// WriteFrame processes one frame (one sample per channel, in channel
// order) through the K-weighting cascade and 100ms block accumulator.
func (m *LUFSMeter) WriteFrame(frame []float64) {
	var energy float64
	for i, x := range frame {
		weighted := m.kWeight[i].Process(x)
		w := channelWeight(m.channels[i])
		if w > 0 {
			energy += weighted * weighted * w
		}
		m.truePeaks[i].Write(x)
	}
	m.blockEnergy += energy
	m.blockPos++
	if m.blockPos >= m.blockSize {
		m.completeBlock()
	}
}

// WriteBlock processes a full audio block, channel-interleaved the same
// way dawcore.Buffer stores samples.
func (m *LUFSMeter) WriteBlock(channels int, frames int, interleaved []float32) {
	frame := make([]float64, channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			frame[c] = float64(interleaved[f*channels+c])
		}
		m.WriteFrame(frame)
	}
}

func (m *LUFSMeter) completeBlock() {
	meanSquare := m.blockEnergy / float64(m.blockPos)
	m.blockEnergy = 0
	m.blockPos = 0

	m.momentaryBlocks = append(m.momentaryBlocks, meanSquare)
	if len(m.momentaryBlocks) > momentaryWindowBlocks {
		m.momentaryBlocks = m.momentaryBlocks[len(m.momentaryBlocks)-momentaryWindowBlocks:]
	}
	m.shortTermBlocks = append(m.shortTermBlocks, meanSquare)
	if len(m.shortTermBlocks) > shortTermWindowBlocks {
		m.shortTermBlocks = m.shortTermBlocks[len(m.shortTermBlocks)-shortTermWindowBlocks:]
	}

	blockLUFS := meanSquareToLUFS(meanSquare)
	if blockLUFS >= absoluteGateLUFS {
		m.gatedBlocks = append(m.gatedBlocks, meanSquare)
	}

	if len(m.shortTermBlocks) == shortTermWindowBlocks {
		m.shortTermHistory = append(m.shortTermHistory, m.ShortTermLUFS())
	}
}

// MomentaryLUFS returns the 400ms sliding loudness measurement (§4.C.5).
func (m *LUFSMeter) MomentaryLUFS() float64 {
	return meanSquareToLUFS(meanOf(m.momentaryBlocks))
}

// ShortTermLUFS returns the 3s sliding loudness measurement (§4.C.6).
func (m *LUFSMeter) ShortTermLUFS() float64 {
	return meanSquareToLUFS(meanOf(m.shortTermBlocks))
}

// IntegratedLUFS computes the gated integrated loudness over the whole
// signal measured so far (§4.C.7): absolute gate at -70 LUFS, then a
// relative gate at preliminary-10 LU, with the final value being the
// mean of blocks passing both gates.
func (m *LUFSMeter) IntegratedLUFS() float64 {
	if len(m.gatedBlocks) == 0 {
		return silenceFloorLUFS
	}
	preliminary := meanOf(m.gatedBlocks)
	prelimLUFS := meanSquareToLUFS(preliminary)
	relativeGate := prelimLUFS + relativeGateOffsetLU

	var sum float64
	var n int
	for _, e := range m.gatedBlocks {
		if meanSquareToLUFS(e) >= relativeGate {
			sum += e
			n++
		}
	}
	if n == 0 {
		return prelimLUFS
	}
	return meanSquareToLUFS(sum / float64(n))
}

// LoudnessRange returns the LRA: the 95th minus 10th percentile of the
// short-term LUFS history (§4.C.8), or 0 if fewer than 10 measurements
// have accumulated.
func (m *LUFSMeter) LoudnessRange() float64 {
	if len(m.shortTermHistory) < minMeasurementsForLRA {
		return 0
	}
	sorted := append([]float64(nil), m.shortTermHistory...)
	sort.Float64s(sorted)
	p10 := percentile(sorted, 10)
	p95 := percentile(sorted, 95)
	return p95 - p10
}

// TruePeakDBFS returns the maximum true-peak estimate across channels.
func (m *LUFSMeter) TruePeakDBFS() float64 {
	peak := silenceFloorLUFS
	for _, tp := range m.truePeaks {
		if v := tp.PeakDBFS(); v > peak {
			peak = v
		}
	}
	return peak
}

// IntersampleOvers returns the total count, across all channels, of
// oversampled reconstruction points that exceeded full scale.
func (m *LUFSMeter) IntersampleOvers() int {
	var n int
	for _, tp := range m.truePeaks {
		n += tp.Overs()
	}
	return n
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// percentile returns the linear-interpolated percentile p (0-100) of a
// pre-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Reset clears all accumulated state.
func (m *LUFSMeter) Reset() {
	for _, f := range m.kWeight {
		f.Reset()
	}
	for _, tp := range m.truePeaks {
		tp.Reset()
	}
	m.blockPos = 0
	m.blockEnergy = 0
	m.momentaryBlocks = nil
	m.shortTermBlocks = nil
	m.gatedBlocks = nil
	m.shortTermHistory = nil
}
