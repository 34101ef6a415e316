package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresetForQualityDefaultsToStandardForUnknownValue(t *testing.T) {
	assert.Equal(t, qualityPresets[QualityStandard], PresetForQuality(Quality(99)))
}

func TestApplyQualityPresetSetsQualityDependentFieldsOnly(t *testing.T) {
	settings := ProcessingSettings{OutputSampleRate: 96000, MaxTruePeakDBFS: -1.0}
	ApplyQualityPreset(&settings, QualityMastering)

	assert.Equal(t, 10, settings.ResamplingQuality)
	assert.True(t, settings.LimiterEnabled)
	assert.True(t, settings.DitherEnabled)
	assert.True(t, settings.LookaheadLimiter)
	assert.Equal(t, 96000, settings.OutputSampleRate)
	assert.Equal(t, -1.0, settings.MaxTruePeakDBFS)
}

func TestTargetLUFSForEachStandard(t *testing.T) {
	target, normalize := TargetLUFS(LoudnessNone, 0)
	assert.False(t, normalize)
	assert.Zero(t, target)

	target, normalize = TargetLUFS(LoudnessEBUR128_23, 0)
	assert.True(t, normalize)
	assert.Equal(t, -23.0, target)

	target, normalize = TargetLUFS(LoudnessCustom, -18.5)
	assert.True(t, normalize)
	assert.Equal(t, -18.5, target)
}
