package render

import "math/rand"

// Ditherer adds noise ahead of bit-depth reduction and quantizes the
// result (§4.I "Dithering"). One Ditherer per channel: the NoiseShaping
// path carries a running feedback term that must not be shared across
// channels.
type Ditherer struct {
	dtype    DitherType
	bitDepth int
	rng      *rand.Rand
	feedback float64
}

// NewDitherer builds a ditherer for one output channel quantizing to
// bitDepth bits. seed only needs to differ across channels/jobs to
// decorrelate their noise.
func NewDitherer(dtype DitherType, bitDepth int, seed int64) *Ditherer {
	return &Ditherer{dtype: dtype, bitDepth: bitDepth, rng: rand.New(rand.NewSource(seed))}
}

// Quantize dithers sample (in [-1, 1]) per d.dtype and rounds it to a
// signed bitDepth-bit integer. NoiseShaping feeds the previous sample's
// quantization error back in, pushing it above the audible band instead
// of leaving it as flat in-band noise.
func (d *Ditherer) Quantize(sample float64) int32 {
	maxVal := float64(int64(1)<<uint(d.bitDepth-1)) - 1

	shaped := sample
	if d.dtype == DitherNoiseShaping {
		shaped -= d.feedback
	}

	dithered := shaped
	switch d.dtype {
	case DitherRectangularPDF:
		dithered = shaped + (d.rng.Float64()-0.5)/maxVal
	case DitherTriangularPDF, DitherNoiseShaping:
		dithered = shaped + (d.rng.Float64()-d.rng.Float64())*0.5/maxVal
	}

	quantized := round(dithered * maxVal)
	if quantized > maxVal {
		quantized = maxVal
	} else if quantized < -maxVal-1 {
		quantized = -maxVal - 1
	}

	if d.dtype == DitherNoiseShaping {
		d.feedback = quantized/maxVal - sample
	}

	return int32(quantized)
}

// applyDithering dithers an interleaved buffer in place, one Ditherer
// per channel so each channel's noise-shaping feedback stays
// independent, then rescales the quantized result back into [-1, 1]
// ahead of the container writer's own quantization pass.
func applyDithering(interleaved []float64, channels int, dtype DitherType, bitDepth int) {
	if dtype == DitherNone || bitDepth <= 0 || channels == 0 {
		return
	}
	maxVal := float64(int64(1)<<uint(bitDepth-1)) - 1
	ditherers := make([]*Ditherer, channels)
	for c := range ditherers {
		ditherers[c] = NewDitherer(dtype, bitDepth, int64(c+1))
	}
	frames := len(interleaved) / channels
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			idx := f*channels + c
			q := ditherers[c].Quantize(interleaved[idx])
			interleaved[idx] = float64(q) / maxVal
		}
	}
}

func round(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
