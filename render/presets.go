package render

// QualityPreset is the ProcessingSettings subset a RenderQuality preset
// fixes: resampling quality and whether the limiter/dither stages run
// at all (§9 "Render quality presets", from the original's
// RenderProcessingSettings defaults per quality tier).
type QualityPreset struct {
	ResamplingQuality int
	LimiterEnabled    bool
	DitherEnabled     bool
	LookaheadLimiter  bool
}

var qualityPresets = map[Quality]QualityPreset{
	QualityDraft:       {ResamplingQuality: 1, LimiterEnabled: false, DitherEnabled: false, LookaheadLimiter: false},
	QualityStandard:    {ResamplingQuality: 4, LimiterEnabled: false, DitherEnabled: true, LookaheadLimiter: false},
	QualityHighQuality: {ResamplingQuality: 7, LimiterEnabled: true, DitherEnabled: true, LookaheadLimiter: false},
	QualityMastering:   {ResamplingQuality: 10, LimiterEnabled: true, DitherEnabled: true, LookaheadLimiter: true},
}

// PresetForQuality returns the processing preset for q, defaulting to
// Standard for an unrecognized value.
func PresetForQuality(q Quality) QualityPreset {
	if p, ok := qualityPresets[q]; ok {
		return p
	}
	return qualityPresets[QualityStandard]
}

// targetLUFSByStandard maps each LoudnessStandard to its target
// integrated LUFS value.
var targetLUFSByStandard = map[LoudnessStandard]float64{
	LoudnessEBUR128_23:   -23.0,
	LoudnessEBUR128_16:   -16.0,
	LoudnessATSCA85_24:   -24.0,
	LoudnessSpotify14:    -14.0,
	LoudnessYouTube14:    -14.0,
	LoudnessAppleMusic16: -16.0,
	LoudnessTidal14:      -14.0,
}

// TargetLUFS returns the target integrated loudness for standard, or
// customTarget for LoudnessCustom, or 0 (no normalization) for
// LoudnessNone.
func TargetLUFS(standard LoudnessStandard, customTarget float64) (target float64, normalize bool) {
	switch standard {
	case LoudnessNone:
		return 0, false
	case LoudnessCustom:
		return customTarget, true
	default:
		if v, ok := targetLUFSByStandard[standard]; ok {
			return v, true
		}
		return 0, false
	}
}

// ApplyQualityPreset fills the quality-dependent fields of settings
// from q, leaving caller-set fields (sample rate, loudness target,
// true-peak ceiling) untouched.
func ApplyQualityPreset(settings *ProcessingSettings, q Quality) {
	p := PresetForQuality(q)
	settings.ResamplingQuality = p.ResamplingQuality
	settings.LimiterEnabled = p.LimiterEnabled
	settings.DitherEnabled = p.DitherEnabled
	settings.LookaheadLimiter = p.LookaheadLimiter
}
