// Package dawcore implements the hard real-time core of a digital audio
// workstation engine: the mixer bus graph, the automation scheduler, and
// the offline render engine. See spec.md and SPEC_FULL.md for the full
// specification; this file holds the data model shared across every
// sub-package (ring, audiobuf, meter, automation, mixer, render,
// audiofile, device).
package dawcore

import "math"

// MaxChannels bounds a bus or buffer's channel count (§3: 1-32).
const MaxChannels = 32

// Buffer is a rectangular channels x frames block of 32-bit float
// samples, plus a capacity that may exceed the logical frame count.
// It is mutated only by its current owner; downstream stages receive it
// by reference with move semantics - never aliased for write by more
// than one stage at a time (§5 buffer ownership).
type Buffer struct {
	channels int
	frames   int
	capacity int
	data     []float32 // channel-interleaved: data[frame*channels+ch]
}

// NewBuffer allocates a buffer with room for capacityFrames frames of
// channels channels, initially holding zero frames.
func NewBuffer(channels, capacityFrames int) *Buffer {
	if channels <= 0 || capacityFrames < 0 {
		panic("dawcore: invalid buffer dimensions")
	}
	return &Buffer{
		channels: channels,
		capacity: capacityFrames,
		data:     make([]float32, channels*capacityFrames),
	}
}

// Channels returns the channel count.
func (b *Buffer) Channels() int { return b.channels }

// Frames returns the current logical frame count.
func (b *Buffer) Frames() int { return b.frames }

// Capacity returns the maximum frame count the buffer can hold.
func (b *Buffer) Capacity() int { return b.capacity }

// SetFrames sets the logical frame count. n must not exceed Capacity.
func (b *Buffer) SetFrames(n int) {
	if n < 0 || n > b.capacity {
		panic("dawcore: SetFrames out of range")
	}
	b.frames = n
}

// At returns the sample at (channel, frame).
func (b *Buffer) At(channel, frame int) float32 {
	return b.data[frame*b.channels+channel]
}

// Set stores the sample at (channel, frame).
func (b *Buffer) Set(channel, frame int, v float32) {
	b.data[frame*b.channels+channel] = v
}

// Raw returns the underlying channel-interleaved sample slice, sized to
// the logical frame count (not capacity).
func (b *Buffer) Raw() []float32 {
	return b.data[:b.frames*b.channels]
}

// Clear zeroes every sample in the logical frame range.
func (b *Buffer) Clear() {
	raw := b.Raw()
	for i := range raw {
		raw[i] = 0
	}
}

// EnsureFrames grows the backing storage if needed and sets the logical
// frame count to n. Used off the audio thread only (it may allocate).
func (b *Buffer) EnsureFrames(n int) {
	if n > b.capacity {
		grown := make([]float32, n*b.channels)
		copy(grown, b.data)
		b.data = grown
		b.capacity = n
	}
	b.SetFrames(n)
}

// CopyFrom copies src's samples into b starting at b's beginning. The
// channel counts must match; b must have capacity for src.Frames().
func (b *Buffer) CopyFrom(src *Buffer) {
	if src.channels != b.channels {
		panic("dawcore: channel count mismatch in CopyFrom")
	}
	b.SetFrames(src.frames)
	copy(b.Raw(), src.Raw())
}

// AddFrom adds src's samples into b sample-for-sample, scaled by gain.
// Channel counts must match and b must already hold >= src.Frames().
func (b *Buffer) AddFrom(src *Buffer, gain float32) {
	if src.channels != b.channels {
		panic("dawcore: channel count mismatch in AddFrom")
	}
	n := src.frames * src.channels
	for i := 0; i < n; i++ {
		b.data[i] += src.data[i] * gain
	}
}

// Clip clamps every sample to [-1, 1] in place, as required before
// integer quantization in the file writers (§4.J).
func (b *Buffer) Clip() {
	raw := b.Raw()
	for i, v := range raw {
		if v > 1 {
			raw[i] = 1
		} else if v < -1 {
			raw[i] = -1
		}
	}
}

// PeakAbs returns the maximum absolute sample value across every
// channel and frame currently held.
func (b *Buffer) PeakAbs() float32 {
	var peak float32
	for _, v := range b.Raw() {
		a := float32(math.Abs(float64(v)))
		if a > peak {
			peak = a
		}
	}
	return peak
}

// DBToLinear converts a decibel value to a linear gain factor.
func DBToLinear(db float64) float64 {
	if db <= -70 {
		return 0
	}
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear gain factor to decibels. Silence maps to
// the -70 dB floor used throughout the meter and bus gain clamp (§3).
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return -70
	}
	db := 20 * math.Log10(linear)
	if db < -70 {
		return -70
	}
	return db
}

// ClampGainDB clamps a gain value to the bus gain range of [-70, +20] dB.
func ClampGainDB(db float64) float64 {
	if db < -70 {
		return -70
	}
	if db > 20 {
		return 20
	}
	return db
}

// ClampPan clamps a pan position to [-1, +1] (§3).
func ClampPan(pan float64) float64 {
	if pan < -1 {
		return -1
	}
	if pan > 1 {
		return 1
	}
	return pan
}

// EqualPowerPan computes left/right linear gains for a pan position in
// [-1, +1] using the equal-power law L^2+R^2=1 (§4.G step 5).
func EqualPowerPan(pan float64) (left, right float64) {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	left = math.Sqrt(0.5 * (1 - pan))
	right = math.Sqrt(0.5 * (1 + pan))
	return
}
