package mixer

import "math"

// hpfCoeffs and hpfSection duplicate the RBJ highpass design used in
// the meter package's K-weighting filter, applied here at the front of
// a bus's signal chain (input trim -> phase invert -> HPF) rather than
// as part of loudness measurement. Kept separate from meter's biquad
// because a channel-strip filter is reconfigured far more often (every
// HPF frequency tweak; Bus.SetHPF always uses Q 0.707), whereas the meter's
// coefficients are fixed by the loudness standard.
type hpfCoeffs struct {
	b0, b1, b2, a1, a2 float64
}

func designHPF(freqHz, q, sampleRate float64) hpfCoeffs {
	w0 := 2 * math.Pi * freqHz / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	b0 := (1 + cosW0) / 2
	b1 := -(1 + cosW0)
	b2 := (1 + cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return hpfCoeffs{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

type hpfSection struct {
	c          hpfCoeffs
	x1, x2     float64
	y1, y2     float64
}

func (s *hpfSection) process(x float64) float64 {
	y := s.c.b0*x + s.c.b1*s.x1 + s.c.b2*s.x2 - s.c.a1*s.y1 - s.c.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

func (s *hpfSection) reset() {
	s.x1, s.x2, s.y1, s.y2 = 0, 0, 0, 0
}

// channelStrip holds the per-channel filter state for the trim/phase/HPF
// stage that runs ahead of a bus's effect chain (§4.G expansion).
type channelStrip struct {
	sections []hpfSection
}

func newChannelStrip(channels int) *channelStrip {
	return &channelStrip{sections: make([]hpfSection, channels)}
}

func (cs *channelStrip) ensureChannels(channels int) {
	if len(cs.sections) < channels {
		cs.sections = make([]hpfSection, channels)
	}
}

func (cs *channelStrip) setCoeffs(c hpfCoeffs) {
	for i := range cs.sections {
		cs.sections[i].c = c
	}
}

func (cs *channelStrip) process(channel int, x float64) float64 {
	return cs.sections[channel].process(x)
}

func (cs *channelStrip) reset() {
	for i := range cs.sections {
		cs.sections[i].reset()
	}
}
