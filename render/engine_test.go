package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveforge/dawcore/audiofile"
	"github.com/waveforge/dawcore/mixer"
)

func baseJobConfig(dir string) JobConfig {
	return JobConfig{
		Target:           Target{Type: TargetMasterMix},
		Region:           Region{StartSamples: 0, EndSamples: 4800},
		OutputDir:        dir,
		FilenameTemplate: "{track_name}_{timestamp}.{format}",
		Container:        ContainerWAV,
		Format:           audiofile.PCM16,
		Processing: ProcessingSettings{
			OutputSampleRate: 48000,
			BitDepth:         16,
		},
		ProjectName: "Test",
	}
}

func TestEngineSubmitAndWaitProducesOutputFile(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 2)

	dir := t.TempDir()
	id := engine.Submit(baseJobConfig(dir))

	res, err := engine.Wait(id, 5*time.Second)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.OutputFilePath)

	_, statErr := os.Stat(res.OutputFilePath)
	assert.NoError(t, statErr)
	assert.True(t, filepath.IsAbs(res.OutputFilePath) || filepath.Dir(res.OutputFilePath) == dir)
}

func TestEngineProgressReachesCompleted(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 2)

	dir := t.TempDir()
	id := engine.Submit(baseJobConfig(dir))
	_, err := engine.Wait(id, 5*time.Second)
	require.NoError(t, err)

	progress, err := engine.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 100.0, progress.ProgressPercent)
}

func TestEngineCancelBeforeFirstChunkYieldsCancelledStatus(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 1)

	dir := t.TempDir()
	cfg := baseJobConfig(dir)
	cfg.Region = Region{StartSamples: 0, EndSamples: 48000 * 30}

	id := engine.Submit(cfg)
	require.NoError(t, engine.Cancel(id))

	res, err := engine.Wait(id, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Success)

	progress, err := engine.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, progress.Status)
}

func TestEngineCancelUnknownJobReturnsNotFound(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 1)
	assert.Error(t, engine.Cancel(JobID(999)))
}

func TestEngineRendersStemsPerTrack(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 2)

	dir := t.TempDir()
	cfg := baseJobConfig(dir)
	cfg.Target = Target{Type: TargetStems, TrackIDs: []uint32{1, 2, 3}}

	id := engine.Submit(cfg)
	res, err := engine.Wait(id, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.StemFilePaths, 3)
	for _, p := range res.StemFilePaths {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr)
	}
}

func TestEngineStemNormalizationAppliesWithoutError(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 1)

	dir := t.TempDir()
	cfg := baseJobConfig(dir)
	cfg.Target = Target{Type: TargetStems, TrackIDs: []uint32{1}}
	cfg.StemNormalizeDBFS = -1.0

	id := engine.Submit(cfg)
	res, err := engine.Wait(id, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.StemFilePaths, 1)
}

func TestEngineRejectsEmptyRegion(t *testing.T) {
	manager := mixer.NewManager(48000, 2)
	engine := NewEngine(manager, 48000, 1)

	dir := t.TempDir()
	cfg := baseJobConfig(dir)
	cfg.Region = Region{StartSamples: 10, EndSamples: 10}

	id := engine.Submit(cfg)
	res, err := engine.Wait(id, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Success)

	progress, err := engine.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, progress.Status)
}
