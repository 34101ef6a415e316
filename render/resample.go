package render

import "math"

// resampleHalfWidth maps a 1-10 quality setting to a windowed-sinc
// kernel half-width: higher quality means a longer kernel and better
// stopband rejection at proportionally higher cost, the same tradeoff
// the bus graph's own FIR filter design makes for its lowpass/bandpass
// kernels.
func resampleHalfWidth(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 10 {
		quality = 10
	}
	return 2 + quality*3
}

// blackmanWindow returns the Blackman window weight for tap j of a
// kernel with taps total taps.
func blackmanWindow(j, taps int) float64 {
	n := float64(taps - 1)
	x := float64(j)
	return 0.42 - 0.5*math.Cos(2*math.Pi*x/n) + 0.08*math.Cos(4*math.Pi*x/n)
}

// sinc is the normalized sinc function sin(pi x)/(pi x), with sinc(0)=1.
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Resample converts a channel-interleaved buffer from sourceRate to
// targetRate using windowed-sinc interpolation (§4.I "Resampling").
// quality is 1-10. When the rates already match, interleaved is
// returned unchanged.
func Resample(interleaved []float64, channels, frames int, sourceRate, targetRate float64, quality int) ([]float64, int) {
	if sourceRate == targetRate || frames == 0 {
		return interleaved, frames
	}

	ratio := sourceRate / targetRate
	outFrames := int(float64(frames) * targetRate / sourceRate)
	out := make([]float64, outFrames*channels)

	halfWidth := resampleHalfWidth(quality)
	taps := 2*halfWidth + 1

	// Downsampling must narrow the kernel's passband proportionally to
	// the rate ratio to avoid aliasing; upsampling keeps the source
	// Nyquist cutoff, since no new information above it exists to alias.
	cutoffScale := 1.0
	if ratio > 1 {
		cutoffScale = 1.0 / ratio
	}

	for outIdx := 0; outIdx < outFrames; outIdx++ {
		srcPos := float64(outIdx) * ratio
		srcCenter := int(math.Floor(srcPos))

		for ch := 0; ch < channels; ch++ {
			var sum, weightSum float64
			for tap := -halfWidth; tap <= halfWidth; tap++ {
				srcIdx := srcCenter + tap
				if srcIdx < 0 || srcIdx >= frames {
					continue
				}
				dist := (float64(srcIdx) - srcPos) * cutoffScale
				w := blackmanWindow(tap+halfWidth, taps) * sinc(dist)
				sum += interleaved[srcIdx*channels+ch] * w
				weightSum += w
			}
			if weightSum != 0 {
				sum /= weightSum // renormalize for unity passband gain
			}
			out[outIdx*channels+ch] = sum
		}
	}

	return out, outFrames
}
