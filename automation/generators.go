package automation

import "math"

// LFOShape selects the waveform a periodic generator produces.
type LFOShape int

const (
	LFOSine LFOShape = iota
	LFOTriangle
	LFOSawtooth
	LFOSquare
)

// phaseAccumulator mirrors the direct-digital-synthesis technique used for
// tone generation elsewhere in this codebase: a phase accumulator
// advances by a fixed amount per sample and wraps at 1.0, rather than
// calling trig functions against an absolute sample index (which loses
// precision over a long render).
type phaseAccumulator struct {
	phase float64
	step  float64
}

func newPhaseAccumulator(cyclesPerSample float64) *phaseAccumulator {
	return &phaseAccumulator{step: cyclesPerSample}
}

func (p *phaseAccumulator) next() float64 {
	v := p.phase
	p.phase += p.step
	if p.phase >= 1 {
		p.phase -= math.Floor(p.phase)
	}
	return v
}

func lfoValue(shape LFOShape, phase float64) float64 {
	switch shape {
	case LFOSine:
		return (math.Sin(2*math.Pi*phase) + 1) / 2
	case LFOTriangle:
		if phase < 0.5 {
			return phase * 2
		}
		return 2 - phase*2
	case LFOSawtooth:
		return phase
	case LFOSquare:
		if phase < 0.5 {
			return 1
		}
		return 0
	default:
		return 0.5
	}
}

// GenerateRamp fills lane with a two-point linear ramp from startValue
// at startSamples to endValue at startSamples+durationSamples.
func GenerateRamp(lane *Lane, startSamples uint64, durationSamples uint64, startValue, endValue float64) error {
	if err := lane.AddPoint(Point{TimeSamples: startSamples, Value: startValue, Curve: CurveLinear}); err != nil {
		return err
	}
	return lane.AddPoint(Point{TimeSamples: startSamples + durationSamples, Value: endValue, Curve: CurveLinear})
}

// GenerateFadeIn writes a two-point exponential rise from 0 to
// targetValue over durationSamples, starting at startSamples.
func GenerateFadeIn(lane *Lane, startSamples, durationSamples uint64, targetValue float64) error {
	if err := lane.AddPoint(Point{TimeSamples: startSamples, Value: 0, Curve: CurveExponential}); err != nil {
		return err
	}
	return lane.AddPoint(Point{TimeSamples: startSamples + durationSamples, Value: targetValue, Curve: CurveLinear})
}

// GenerateFadeOut writes a two-point logarithmic decay from
// startValue to 0 over durationSamples, starting at startSamples.
func GenerateFadeOut(lane *Lane, startSamples, durationSamples uint64, startValue float64) error {
	if err := lane.AddPoint(Point{TimeSamples: startSamples, Value: startValue, Curve: CurveLogarithmic}); err != nil {
		return err
	}
	return lane.AddPoint(Point{TimeSamples: startSamples + durationSamples, Value: 0, Curve: CurveLinear})
}

// GenerateLFO fills lane with periodic breakpoints of the given shape
// between startSamples and startSamples+durationSamples, at the given
// rate in Hz, sampled every resolutionSamples (coarser resolution
// produces fewer, cheaper-to-evaluate points at the cost of corner
// sharpness on Sine/Triangle). depth scales the oscillation around
// center, both in [0,1] normalized units.
func GenerateLFO(lane *Lane, shape LFOShape, startSamples, durationSamples uint64, rateHz, sampleRate, center, depth float64, resolutionSamples uint64) error {
	if resolutionSamples == 0 {
		resolutionSamples = 1
	}
	cyclesPerSample := rateHz / sampleRate
	acc := newPhaseAccumulator(cyclesPerSample * float64(resolutionSamples))

	curve := CurveLinear
	if shape == LFOSquare {
		curve = CurveStepped
	}

	for t := uint64(0); t <= durationSamples; t += resolutionSamples {
		phase := acc.next()
		v := clamp01(center + (lfoValue(shape, phase)-0.5)*depth)
		if err := lane.AddPoint(Point{TimeSamples: startSamples + t, Value: v, Curve: curve}); err != nil {
			return err
		}
	}
	return nil
}

// GenerateAutoPan is GenerateLFO specialized for a pan lane: a sine
// sweep around center (0.5 = centered pan) at rateHz.
func GenerateAutoPan(lane *Lane, startSamples, durationSamples uint64, rateHz, sampleRate, depth float64) error {
	return GenerateLFO(lane, LFOSine, startSamples, durationSamples, rateHz, sampleRate, 0.5, depth, uint64(sampleRate/200))
}

// GenerateGatePattern writes a repeating on/off rhythm: value is
// onValue for onSamples then offValue for offSamples, repeating until
// durationSamples is covered, with a single-sample step transition
// (CurveStepped) at each edge.
func GenerateGatePattern(lane *Lane, startSamples, durationSamples, onSamples, offSamples uint64, onValue, offValue float64) error {
	if onSamples == 0 || offSamples == 0 {
		return nil
	}
	period := onSamples + offSamples
	for t := uint64(0); t < durationSamples; t += period {
		if err := lane.AddPoint(Point{TimeSamples: startSamples + t, Value: onValue, Curve: CurveStepped}); err != nil {
			return err
		}
		if err := lane.AddPoint(Point{TimeSamples: startSamples + t + onSamples, Value: offValue, Curve: CurveStepped}); err != nil {
			return err
		}
	}
	return nil
}

// GenerateBuildUp writes an accelerating exponential rise from
// startValue to endValue, useful for EDM-style energy builds ahead of
// a drop.
func GenerateBuildUp(lane *Lane, startSamples, durationSamples uint64, startValue, endValue float64) error {
	if err := lane.AddPoint(Point{TimeSamples: startSamples, Value: startValue, Curve: CurveExponential}); err != nil {
		return err
	}
	return lane.AddPoint(Point{TimeSamples: startSamples + durationSamples, Value: endValue, Curve: CurveLinear})
}

// GenerateDrop writes an instantaneous step down to dropValue at
// dropSamples, then holds it for holdSamples.
func GenerateDrop(lane *Lane, dropSamples, holdSamples uint64, preDropValue, dropValue float64) error {
	if err := lane.AddPoint(Point{TimeSamples: dropSamples - 1, Value: preDropValue, Curve: CurveStepped}); err != nil {
		return err
	}
	if err := lane.AddPoint(Point{TimeSamples: dropSamples, Value: dropValue, Curve: CurveLinear}); err != nil {
		return err
	}
	return lane.AddPoint(Point{TimeSamples: dropSamples + holdSamples, Value: dropValue, Curve: CurveLinear})
}
