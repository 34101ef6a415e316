package mixer

// delayLine is a per-channel circular buffer implementing plugin delay
// compensation (§4.G step 3). A new instance is published wholesale by
// SetDelaySamples rather than resized in place, so a concurrent
// Process call either sees the whole old line or the whole new one,
// never a half-resized buffer.
type delayLine struct {
	buf      [][]float32
	size     int
	writePos int
}

// newDelayLine constructs a delay line producing exactly `size` samples
// of delay. size == 0 is a valid bypass (no buffer needed), matching
// original_source/src/mixer/AudioBus.cpp's special case for
// delay_samples == 0.
func newDelayLine(channels, size int) *delayLine {
	if size < 0 {
		size = 0
	}
	d := &delayLine{size: size}
	if size > 0 {
		d.buf = make([][]float32, channels)
		for c := range d.buf {
			d.buf[c] = make([]float32, size)
		}
	}
	return d
}

// step writes in at the current write position for channel and returns
// the sample written `size` frames ago (identity passthrough when
// size == 0). Call once per channel, then advance() once per frame after
// every channel has stepped.
func (d *delayLine) step(channel int, in float32) float32 {
	if d.size == 0 {
		return in
	}
	out := d.buf[channel][d.writePos]
	d.buf[channel][d.writePos] = in
	return out
}

func (d *delayLine) advance() {
	if d.size == 0 {
		return
	}
	d.writePos++
	if d.writePos >= d.size {
		d.writePos = 0
	}
}

// carryFrom copies as much of prev's delayed content as fits, preserving
// in-flight samples across a resize (§4.G "keeps existing contents when
// feasible").
func (d *delayLine) carryFrom(prev *delayLine) {
	if prev == nil || prev.size == 0 || d.size == 0 {
		return
	}
	for c := 0; c < len(d.buf) && c < len(prev.buf); c++ {
		n := len(d.buf[c])
		if len(prev.buf[c]) < n {
			n = len(prev.buf[c])
		}
		for i := 0; i < n; i++ {
			d.buf[c][i] = prev.buf[c][(prev.writePos+i)%prev.size]
		}
	}
}
