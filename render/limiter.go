package render

import (
	"math"

	"github.com/waveforge/dawcore"
)

// limiterLookaheadFrames bounds the lookahead window for the
// Mastering-quality limiter (§4.I "True-peak limiting").
const limiterLookaheadFrames = 256

// applyLimiter brick-wall (or lookahead, when lookahead is true) limits
// interleaved to thresholdDBFS, in place (§4.I step 4). The lookahead
// path scales each frame by threshold over the loudest sample in the
// next limiterLookaheadFrames frames, so gain drops as soon as an
// overshoot enters that window instead of clamping only the sample it
// occurs on. The drop is a step, not a ramp.
func applyLimiter(interleaved []float64, channels, frames int, thresholdDBFS float64, lookahead bool) {
	threshold := dawcore.DBToLinear(thresholdDBFS)
	if threshold <= 0 {
		return
	}

	if !lookahead {
		for i := range interleaved {
			if interleaved[i] > threshold {
				interleaved[i] = threshold
			} else if interleaved[i] < -threshold {
				interleaved[i] = -threshold
			}
		}
		return
	}

	n := frames
	for f := 0; f < n; f++ {
		peak := 0.0
		end := f + limiterLookaheadFrames
		if end > n {
			end = n
		}
		for look := f; look < end; look++ {
			for c := 0; c < channels; c++ {
				if a := math.Abs(interleaved[look*channels+c]); a > peak {
					peak = a
				}
			}
		}
		gain := 1.0
		if peak > threshold {
			gain = threshold / peak
		}
		for c := 0; c < channels; c++ {
			interleaved[f*channels+c] *= gain
		}
	}
}
