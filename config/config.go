// Package config loads session and render-default settings from a YAML
// file on disk, the way the teacher's device-identifier table is loaded
// from tocalls.yaml.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/waveforge/dawcore/audiofile"
	"github.com/waveforge/dawcore/dawerr"
	"github.com/waveforge/dawcore/render"
)

// SessionConfig is a project's persisted engine settings: the sample
// rate and channel count the mixer graph runs at, plus the defaults a
// new render job starts from.
type SessionConfig struct {
	SampleRate     float64 `yaml:"sample_rate"`
	MasterChannels int     `yaml:"master_channels"`
	RenderWorkers  int     `yaml:"render_workers"`

	RenderDefaults RenderDefaults `yaml:"render_defaults"`
}

// RenderDefaults mirrors the render-job-relevant subset of
// render.ProcessingSettings plus the fields outside it (container,
// quality, filename template) in their YAML-friendly string form.
type RenderDefaults struct {
	OutputSampleRate int     `yaml:"output_sample_rate"`
	BitDepth         int     `yaml:"bit_depth"`
	ContainerName    string  `yaml:"container"` // "wav" or "aiff"
	QualityName      string  `yaml:"quality"`   // "draft", "standard", "high_quality", "mastering"
	LoudnessName     string  `yaml:"loudness_standard"`
	CustomLUFSTarget float64 `yaml:"custom_lufs_target"`
	FilenameTemplate string  `yaml:"filename_template"`
	OutputDir        string  `yaml:"output_dir"`
}

// defaultSessionConfig is what a project gets before any config file is
// loaded or when one is absent.
func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		SampleRate:     48000,
		MasterChannels: 2,
		RenderWorkers:  2,
		RenderDefaults: RenderDefaults{
			OutputSampleRate: 48000,
			BitDepth:         24,
			ContainerName:    "wav",
			QualityName:      "standard",
			LoudnessName:     "none",
			FilenameTemplate: "{project}_{track_name}_{timestamp}.{format}",
			OutputDir:        ".",
		},
	}
}

// Load reads and parses a SessionConfig from path. A missing file is
// not an error: it returns defaultSessionConfig() instead, matching the
// teacher's deviceid table falling back to "no mappings available"
// rather than failing outright when its yaml file isn't found.
func Load(path string) (SessionConfig, error) {
	cfg := defaultSessionConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, dawerr.Wrap(dawerr.IoError, "read session config", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, dawerr.Wrap(dawerr.IoError, "parse session config", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating or truncating the file.
func Save(path string, cfg SessionConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return dawerr.Wrap(dawerr.IoError, "marshal session config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return dawerr.Wrap(dawerr.IoError, "write session config", err)
	}
	return nil
}

var qualityByName = map[string]render.Quality{
	"draft":        render.QualityDraft,
	"standard":     render.QualityStandard,
	"high_quality": render.QualityHighQuality,
	"mastering":    render.QualityMastering,
}

var loudnessByName = map[string]render.LoudnessStandard{
	"none":         render.LoudnessNone,
	"ebu_r128_23":  render.LoudnessEBUR128_23,
	"ebu_r128_16":  render.LoudnessEBUR128_16,
	"atsc_a85_24":  render.LoudnessATSCA85_24,
	"spotify_14":   render.LoudnessSpotify14,
	"youtube_14":   render.LoudnessYouTube14,
	"apple_music_16": render.LoudnessAppleMusic16,
	"tidal_14":     render.LoudnessTidal14,
	"custom":       render.LoudnessCustom,
}

var containerByName = map[string]render.Container{
	"wav":  render.ContainerWAV,
	"aiff": render.ContainerAIFF,
}

// Quality resolves the RenderDefaults.QualityName name, defaulting to
// Standard for an unrecognized or empty value.
func (d RenderDefaults) Quality() render.Quality {
	if q, ok := qualityByName[d.quality()]; ok {
		return q
	}
	return render.QualityStandard
}

// Loudness resolves the RenderDefaults.LoudnessName name,
// defaulting to LoudnessNone.
func (d RenderDefaults) Loudness() render.LoudnessStandard {
	if l, ok := loudnessByName[d.loudness()]; ok {
		return l
	}
	return render.LoudnessNone
}

// ResolvedContainer resolves the RenderDefaults.ContainerName name, defaulting to
// ContainerWAV.
func (d RenderDefaults) ResolvedContainer() render.Container {
	if c, ok := containerByName[d.containerName()]; ok {
		return c
	}
	return render.ContainerWAV
}

func (d RenderDefaults) quality() string       { return lower(d.QualityName) }
func (d RenderDefaults) loudness() string      { return lower(d.LoudnessName) }
func (d RenderDefaults) containerName() string { return lower(d.ContainerName) }

// JobConfigTemplate builds a render.JobConfig shell from these defaults,
// leaving Target and Region for the caller to fill in per job.
func (d RenderDefaults) JobConfigTemplate() render.JobConfig {
	format := audiofile.PCM24
	switch d.BitDepth {
	case 16:
		format = audiofile.PCM16
	case 32:
		format = audiofile.PCM32
	}
	return render.JobConfig{
		OutputDir:        d.OutputDir,
		FilenameTemplate: d.FilenameTemplate,
		Container:        d.ResolvedContainer(),
		Format:           format,
		Quality:          d.Quality(),
		Processing: render.ProcessingSettings{
			OutputSampleRate: d.OutputSampleRate,
			BitDepth:         d.BitDepth,
			Loudness:         d.Loudness(),
			CustomLUFSTarget: d.CustomLUFSTarget,
		},
	}
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
