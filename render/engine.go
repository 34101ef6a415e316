package render

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/waveforge/dawcore"
	"github.com/waveforge/dawcore/audiofile"
	"github.com/waveforge/dawcore/dawerr"
	"github.com/waveforge/dawcore/meter"
	"github.com/waveforge/dawcore/mixer"
)

// JobID identifies a submitted render job.
type JobID uint64

// Container selects the output file format.
type Container int

const (
	ContainerWAV Container = iota
	ContainerAIFF
)

// chunkFrames is the block size the engine drives the bus graph with
// while rendering, matching §4.I's "1024-frame chunks".
const chunkFrames = 1024

// JobConfig is everything a render job needs to produce one output file
// (§4.I). Submitting a JobConfig with Target.Type == TargetStems expands
// into one output per Target.TrackIDs entry.
type JobConfig struct {
	Target           Target
	Region           Region
	OutputDir        string
	FilenameTemplate string
	Container        Container
	Format           audiofile.SampleFormat
	Metadata         Metadata
	Processing       ProcessingSettings
	Quality          Quality
	ProjectName      string
	StemNormalizeDBFS float64 // applied per-stem when Target.Type == TargetStems; 0 disables
}

// job is the engine's bookkeeping for one submitted render, threaded
// between the submitting goroutine and whichever worker claims it.
type job struct {
	id     JobID
	config JobConfig

	cancelRequested atomic.Bool

	mu       sync.Mutex
	progress Progress
	result   Result
	done     chan struct{}
}

func newJob(id JobID, cfg JobConfig, totalSamples uint64) *job {
	return &job{
		id:     id,
		config: cfg,
		progress: Progress{
			Status:       StatusPreparing,
			TotalSamples: totalSamples,
		},
		done: make(chan struct{}),
	}
}

func (j *job) setProgress(p Progress) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

func (j *job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

func (j *job) finish(res Result, status Status) {
	j.mu.Lock()
	j.result = res
	j.progress.Status = status
	j.progress.ProgressPercent = 100
	j.mu.Unlock()
	close(j.done)
}

// Engine owns the render job queue and its worker pool (§4.I, §5). The
// queue is a mutex-protected slice; wakeUp is a pure notification
// channel rather than the queue itself, the same split the mixer's
// upstream DSP code uses for its receive-frame queue.
type Engine struct {
	manager    *mixer.Manager
	sampleRate float64

	queueMu         sync.Mutex
	queue           []*job
	waitingWorkers  int
	wakeUp          chan struct{}
	shuttingDown    bool

	jobsMu sync.RWMutex
	jobs   map[JobID]*job

	nextID atomic.Uint64

	Logger *log.Logger
}

// NewEngine starts workerCount render worker goroutines against
// manager's bus graph at sampleRate. workerCount <= 0 defaults to 2.
func NewEngine(manager *mixer.Manager, sampleRate float64, workerCount int) *Engine {
	if workerCount <= 0 {
		workerCount = 2
	}
	e := &Engine{
		manager:    manager,
		sampleRate: sampleRate,
		wakeUp:     make(chan struct{}),
		jobs:       make(map[JobID]*job),
		Logger:     log.New(os.Stderr),
	}
	e.Logger.SetPrefix("render")
	for i := 0; i < workerCount; i++ {
		go e.workerLoop(i)
	}
	return e
}

// Submit enqueues cfg and returns its job id immediately; the job runs
// on whichever worker next becomes free.
func (e *Engine) Submit(cfg JobConfig) JobID {
	id := JobID(e.nextID.Add(1))
	j := newJob(id, cfg, cfg.Region.LengthSamples())

	e.jobsMu.Lock()
	e.jobs[id] = j
	e.jobsMu.Unlock()

	e.queueMu.Lock()
	e.queue = append(e.queue, j)
	wake := e.waitingWorkers > 0
	e.queueMu.Unlock()

	if wake {
		e.wakeUp <- struct{}{}
	}

	e.Logger.Info("render job submitted", "id", id, "target", cfg.Target.Type)
	return id
}

// Cancel requests cooperative cancellation of a queued or running job.
// The worker observes it at the next chunk boundary (§8 Scenario 6).
func (e *Engine) Cancel(id JobID) error {
	e.jobsMu.RLock()
	j, ok := e.jobs[id]
	e.jobsMu.RUnlock()
	if !ok {
		return dawerr.New(dawerr.NotFound, "no such render job").With("id", id)
	}
	j.cancelRequested.Store(true)
	return nil
}

// Progress returns a snapshot of a job's current lifecycle state.
func (e *Engine) Progress(id JobID) (Progress, error) {
	e.jobsMu.RLock()
	j, ok := e.jobs[id]
	e.jobsMu.RUnlock()
	if !ok {
		return Progress{}, dawerr.New(dawerr.NotFound, "no such render job").With("id", id)
	}
	return j.Progress(), nil
}

// Wait blocks until the job completes, is cancelled, or fails, or until
// timeout elapses (timeout <= 0 waits indefinitely), returning the
// final Result.
func (e *Engine) Wait(id JobID, timeout time.Duration) (Result, error) {
	e.jobsMu.RLock()
	j, ok := e.jobs[id]
	e.jobsMu.RUnlock()
	if !ok {
		return Result{}, dawerr.New(dawerr.NotFound, "no such render job").With("id", id)
	}
	if timeout <= 0 {
		<-j.done
		return j.result, nil
	}
	select {
	case <-j.done:
		return j.result, nil
	case <-time.After(timeout):
		return Result{}, dawerr.New(dawerr.Busy, "render job did not complete before timeout").With("id", id)
	}
}

func (e *Engine) workerLoop(workerIndex int) {
	for {
		e.queueMu.Lock()
		for len(e.queue) == 0 {
			e.waitingWorkers++
			e.queueMu.Unlock()
			<-e.wakeUp
			e.queueMu.Lock()
			e.waitingWorkers--
		}
		j := e.queue[0]
		e.queue = e.queue[1:]
		e.queueMu.Unlock()

		e.runJob(j)
	}
}

func (e *Engine) runJob(j *job) {
	start := time.Now()
	j.setProgress(Progress{Status: StatusRendering, TotalSamples: j.progress.TotalSamples, CurrentOperation: "rendering"})

	var res Result
	var err error
	switch j.config.Target.Type {
	case TargetStems:
		res, err = e.renderStems(j)
	default:
		res, err = e.renderMix(j)
	}

	status := StatusCompleted
	if j.cancelRequested.Load() {
		status = StatusCancelled
		res.Success = false
	} else if err != nil {
		status = StatusFailed
		res.Success = false
		res.Log = append(res.Log, err.Error())
	} else {
		res.Success = true
	}
	res.RenderSeconds = time.Since(start).Seconds()
	j.finish(res, status)

	e.Logger.Info("render job finished", "id", j.id, "status", status)
}

// renderMix implements §4.I's six steps for every non-stems target:
// capture the region from the bus graph in chunks, post-process, write,
// analyze. It always captures the master bus output; Target.TrackIDs
// and Target.BusIDs are not consulted, so the selected-tracks and
// bus-output targets render the same signal as the master mix.
func (e *Engine) renderMix(j *job) (Result, error) {
	return e.renderOne(j, j.config, j.config.Target.CustomName, 0)
}

// renderOne runs the capture/post-process/write/analyze pipeline for
// one output file using cfg, reporting progress and cancellation
// through j but without requiring a private copy of cfg's target.
// peakNormalizeDBFS, when non-zero, scales the captured signal so its
// peak sits at that level ahead of the limiter (used for per-stem
// normalization; the master-mix path passes 0 to skip it).
func (e *Engine) renderOne(j *job, cfg JobConfig, targetName string, peakNormalizeDBFS float64) (Result, error) {
	region := cfg.Region
	length := region.LengthSamples()
	if length == 0 {
		return Result{}, dawerr.New(dawerr.InvalidParameter, "render region is empty")
	}

	channels := e.manager.MasterBus().Channels

	captured := dawcore.NewBuffer(channels, int(length))
	captured.SetFrames(int(length))

	var rendered uint64
	for rendered < length {
		if j.cancelRequested.Load() {
			return Result{}, nil
		}
		n := chunkFrames
		if remaining := length - rendered; uint64(n) > remaining {
			n = int(remaining)
		}
		blockStart := int64(region.StartSamples + rendered)
		out := e.manager.ProcessPass(nil, blockStart, n)
		for f := 0; f < n; f++ {
			for c := 0; c < channels; c++ {
				captured.Set(c, int(rendered)+f, out.At(c, f))
			}
		}
		rendered += uint64(n)

		j.setProgress(Progress{
			Status:           StatusRendering,
			ProgressPercent:  float64(rendered) / float64(length) * 50,
			SamplesRendered:  rendered,
			TotalSamples:     length,
			CurrentOperation: "rendering",
		})
	}

	return e.postProcessAndWrite(j, captured, targetName, peakNormalizeDBFS)
}

// renderStems runs one capture pass per track id and the same
// post-process/write/analyze pipeline per stem (§4.I "Stems"). The
// caller is responsible for isolating each track (e.g. via
// Manager.SoloArbitration on that track's bus) before the corresponding
// pass begins; the engine only drives the capture and file output.
func (e *Engine) renderStems(j *job) (Result, error) {
	cfg := j.config
	var res Result

	for i, trackID := range cfg.Target.TrackIDs {
		if j.cancelRequested.Load() {
			return res, nil
		}

		stemRes, err := e.renderOne(j, cfg, stemName(trackID), cfg.StemNormalizeDBFS)
		if err != nil {
			return res, err
		}
		res.StemFilePaths = append(res.StemFilePaths, stemRes.OutputFilePath)
		res.Log = append(res.Log, stemRes.Log...)

		j.setProgress(Progress{
			Status:           StatusRendering,
			ProgressPercent:  float64(i+1) / float64(len(cfg.Target.TrackIDs)) * 90,
			TotalSamples:     j.progress.TotalSamples,
			CurrentOperation: "rendering stems",
		})
	}
	return res, nil
}

func stemName(trackID uint32) string {
	return "Track" + strconv.FormatUint(uint64(trackID), 10)
}

// postProcessAndWrite implements §4.I steps 4-6: resample, normalize
// loudness, limit, write the container, then analyze what was written.
func (e *Engine) postProcessAndWrite(j *job, captured *dawcore.Buffer, targetName string, peakNormalizeDBFS float64) (Result, error) {
	cfg := j.config
	channels := captured.Channels()
	frames := captured.Frames()

	interleaved := make([]float64, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			interleaved[f*channels+c] = float64(captured.At(c, f))
		}
	}

	j.setProgress(Progress{Status: StatusPostProcessing, ProgressPercent: 55, TotalSamples: j.progress.TotalSamples, CurrentOperation: "post-processing"})

	outRate := float64(cfg.Processing.OutputSampleRate)
	if outRate == 0 {
		outRate = e.sampleRate
	}
	interleaved, frames = Resample(interleaved, channels, frames, e.sampleRate, outRate, cfg.Processing.ResamplingQuality)

	if peakNormalizeDBFS != 0 {
		normalizePeak(interleaved, peakNormalizeDBFS)
	}

	targetLUFS, normalize := TargetLUFS(cfg.Processing.Loudness, cfg.Processing.CustomLUFSTarget)
	measured := measureLoudness(interleaved, channels, frames, outRate)
	if normalize && measured.IntegratedLUFS > -70 {
		gain := math.Pow(10, (targetLUFS-measured.IntegratedLUFS)/20)
		for i := range interleaved {
			interleaved[i] *= gain
		}
	}

	if cfg.Processing.LimiterEnabled {
		applyLimiter(interleaved, channels, frames, cfg.Processing.LimiterThresholdDBFS, cfg.Processing.LookaheadLimiter)
	}

	if cfg.Processing.DitherEnabled {
		applyDithering(interleaved, channels, cfg.Processing.Dither, cfg.Processing.BitDepth)
	}

	j.setProgress(Progress{Status: StatusFinalizing, ProgressPercent: 90, TotalSamples: j.progress.TotalSamples, CurrentOperation: "writing"})

	outPath, fileSize, err := e.writeOutput(j, interleaved, channels, int(outRate), frames, targetName)
	if err != nil {
		return Result{}, err
	}

	analysis := measureLoudness(interleaved, channels, frames, outRate)
	analysis.DurationSeconds = float64(frames) / outRate
	analysis.FileSizeBytes = fileSize

	return Result{
		OutputFilePath: outPath,
		Analysis:       analysis,
	}, nil
}

func (e *Engine) writeOutput(j *job, interleaved []float64, channels, sampleRate, frames int, targetName string) (string, uint64, error) {
	cfg := j.config

	name, err := RenderFilename(cfg.FilenameTemplate, TemplateVariables{
		Project:   cfg.ProjectName,
		TrackName: targetName,
		Format:    containerExtension(cfg.Container),
	}, time.Unix(0, 0))
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(cfg.OutputDir, name)

	switch cfg.Container {
	case ContainerAIFF:
		w, err := audiofile.NewAIFFWriter(path, channels, sampleRate, cfg.Format)
		if err != nil {
			return "", 0, err
		}
		if err := writeInChunks(w, interleaved, channels, frames); err != nil {
			w.Close()
			return "", 0, err
		}
		size := w.FileSizeBytes()
		return path, size, w.Close()
	default:
		w, err := audiofile.NewWAVWriter(path, channels, sampleRate, cfg.Format)
		if err != nil {
			return "", 0, err
		}
		if err := writeInChunks(w, interleaved, channels, frames); err != nil {
			w.Close()
			return "", 0, err
		}
		size := w.FileSizeBytes()
		return path, size, w.Close()
	}
}

type sampleWriter interface {
	WriteSamples(interleaved []float64, nFrames int) error
	FileSizeBytes() uint64
}

func writeInChunks(w sampleWriter, interleaved []float64, channels, frames int) error {
	for pos := 0; pos < frames; pos += chunkFrames {
		n := chunkFrames
		if remaining := frames - pos; n > remaining {
			n = remaining
		}
		if err := w.WriteSamples(interleaved[pos*channels:(pos+n)*channels], n); err != nil {
			return err
		}
	}
	return nil
}

// normalizePeak scales interleaved so its absolute peak sits at
// targetDBFS, used for the stems path's per-stem normalization (§4.I
// "Stems"). A silent buffer is left untouched.
func normalizePeak(interleaved []float64, targetDBFS float64) {
	var peak float64
	for _, v := range interleaved {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	gain := dawcore.DBToLinear(targetDBFS) / peak
	for i := range interleaved {
		interleaved[i] *= gain
	}
}

func containerExtension(c Container) string {
	if c == ContainerAIFF {
		return "aiff"
	}
	return "wav"
}

// measureLoudness runs a full LUFS/true-peak pass over a finished
// buffer for the render's Analysis (§4.I step 6).
func measureLoudness(interleaved []float64, channels, frames int, sampleRate float64) Analysis {
	layout := make([]meter.Channel, channels)
	for i := range layout {
		if i == 0 {
			layout[i] = meter.ChannelLeft
		} else if i == 1 {
			layout[i] = meter.ChannelRight
		} else {
			layout[i] = meter.ChannelCenter
		}
	}
	m := meter.NewLUFSMeter(sampleRate, layout)

	windowMs := float64(frames) / sampleRate * 1000
	if windowMs < 1 {
		windowMs = 1
	}
	rms := meter.NewRMSMeter(sampleRate, windowMs)

	frame := make([]float64, channels)
	var momentaryMax, shortTermMax float64
	var peakAbs float64
	for f := 0; f < frames; f++ {
		var downmix float64
		for c := 0; c < channels; c++ {
			v := interleaved[f*channels+c]
			frame[c] = v
			downmix += v
			if a := math.Abs(v); a > peakAbs {
				peakAbs = a
			}
		}
		m.WriteFrame(frame)
		rms.Write(downmix / float64(channels))
		if v := m.MomentaryLUFS(); v > momentaryMax {
			momentaryMax = v
		}
		if v := m.ShortTermLUFS(); v > shortTermMax {
			shortTermMax = v
		}
	}

	var clipping []uint64
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			if math.Abs(interleaved[f*channels+c]) >= 1.0 {
				clipping = append(clipping, uint64(f))
				break
			}
		}
	}

	// DR and crest factor are both peak-to-RMS in dB (§4.I step 6,
	// SPEC_FULL "Dynamic range / crest factor"), using the plain RMS
	// meter rather than LUFS/LRA.
	rmsLinear := rms.Value()
	peakToRMS := 0.0
	if peakAbs > 0 && rmsLinear > 0 {
		peakToRMS = dawcore.LinearToDB(peakAbs) - dawcore.LinearToDB(rmsLinear)
	}

	return Analysis{
		IntegratedLUFS:    m.IntegratedLUFS(),
		MomentaryLUFSMax:  momentaryMax,
		ShortTermLUFSMax:  shortTermMax,
		LoudnessRange:     m.LoudnessRange(),
		TruePeakDBFS:      m.TruePeakDBFS(),
		DynamicRangeDB:    peakToRMS,
		CrestFactorDB:     peakToRMS,
		IntersamplePeaks:  uint32(m.IntersampleOvers()),
		ClippingPositions: clipping,
	}
}
