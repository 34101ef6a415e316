// Package render implements the offline render engine (§4.I): a job
// queue driving the mixer's bus graph through fixed-size chunks,
// post-processing (resample/normalize/limit), format-specific writing,
// and analysis of the result.
package render

import "github.com/waveforge/dawcore/mixer"

// Quality selects the resampling/limiting tradeoffs for a render job.
type Quality int

const (
	QualityDraft Quality = iota
	QualityStandard
	QualityHighQuality
	QualityMastering
)

// LoudnessStandard names a target integrated-LUFS preset.
type LoudnessStandard int

const (
	LoudnessNone LoudnessStandard = iota
	LoudnessEBUR128_23
	LoudnessEBUR128_16
	LoudnessATSCA85_24
	LoudnessSpotify14
	LoudnessYouTube14
	LoudnessAppleMusic16
	LoudnessTidal14
	LoudnessCustom
)

// DitherType selects the noise added ahead of bit-depth reduction.
type DitherType int

const (
	DitherNone DitherType = iota
	DitherTriangularPDF
	DitherRectangularPDF
	DitherNoiseShaping
)

// TargetType selects what a job renders.
type TargetType int

const (
	TargetMasterMix TargetType = iota
	TargetStems
	TargetSelectedTracks
	TargetBusOutput
)

// Target names what to render: the whole master mix, a stems pass over
// TrackIDs, a subset of tracks, or a specific bus.
type Target struct {
	Type      TargetType
	TrackIDs  []uint32
	BusIDs    []mixer.BusID
	CustomName string
}

// Region bounds a render to [Start, End) samples at the project's
// internal sample rate.
type Region struct {
	StartSamples uint64
	EndSamples   uint64
}

// LengthSamples returns the region's length, or 0 if End <= Start.
func (r Region) LengthSamples() uint64 {
	if r.EndSamples > r.StartSamples {
		return r.EndSamples - r.StartSamples
	}
	return 0
}

// ProcessingSettings configures the post-processing stages run after
// the master mix is captured (§4.I step 4).
type ProcessingSettings struct {
	OutputSampleRate  int
	ResamplingQuality int // 1-10, higher = longer FIR

	BitDepth       int
	DitherEnabled  bool
	Dither         DitherType

	LimiterEnabled        bool
	LimiterThresholdDBFS  float64
	LimiterReleaseMS      float64
	LookaheadLimiter      bool // Mastering-quality lookahead vs brick-wall

	Loudness         LoudnessStandard
	CustomLUFSTarget float64
	TruePeakLimiting bool
	MaxTruePeakDBFS  float64
}

// Metadata carries tags written into the output container where the
// format supports them (§4.I step 5).
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	Genre       string
	Comment     string
	Year        uint32
	TrackNumber uint32
	ISRC        string
	CustomTags  map[string]string
}

// Status names a job's lifecycle state.
type Status int

const (
	StatusPreparing Status = iota
	StatusRendering
	StatusPostProcessing
	StatusFinalizing
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPreparing:
		return "Preparing"
	case StatusRendering:
		return "Rendering"
	case StatusPostProcessing:
		return "PostProcessing"
	case StatusFinalizing:
		return "Finalizing"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Progress is a snapshot of a job's lifecycle state, readable from any
// thread while the job runs.
type Progress struct {
	Status          Status
	ProgressPercent float64
	SamplesRendered uint64
	TotalSamples    uint64
	CurrentOperation string
	ErrorMessage    string
}

// Analysis holds the measurements taken of the finished render (§4.I
// step 6, supplemented per the original's RenderAnalysis with crest
// factor).
type Analysis struct {
	IntegratedLUFS     float64
	MomentaryLUFSMax   float64
	ShortTermLUFSMax   float64
	LoudnessRange      float64
	TruePeakDBFS       float64
	DynamicRangeDB     float64
	CrestFactorDB      float64
	IntersamplePeaks   uint32
	ClippingPositions  []uint64
	FileSizeBytes      uint64
	DurationSeconds    float64
}

// Result is what a completed (or cancelled/failed) job returns.
type Result struct {
	Success        bool
	OutputFilePath string
	StemFilePaths  []string
	Analysis       Analysis
	Log            []string
	RenderSeconds  float64
}
