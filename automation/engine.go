package automation

import (
	"math"
	"sync"
	"time"
)

type target struct {
	apply func(engineering float64)
}

type smoother struct {
	current float64
	init    bool
}

func (s *smoother) step(target, alpha float64) float64 {
	if !s.init {
		s.current = target
		s.init = true
		return s.current
	}
	s.current += alpha * (target - s.current)
	return s.current
}

// override holds a manually-driven value that takes priority over a
// lane's automation for as long as Active is true (a user touching a
// fader while automation plays back, §4.E).
type override struct {
	value  float64
	active bool
}

// Engine is the per-block automation scheduler (§4.E): for every
// enabled, non-overridden lane it samples ValueAt the current
// position, maps it to engineering units, smooths it, and dispatches
// it to a registered target.
type Engine struct {
	mu sync.Mutex

	data    *Data
	targets map[ParameterID]target
	smooth  map[ParameterID]*smoother

	SmoothingMS float64

	position    uint64
	rate        float64
	playing     bool
	loopEnabled bool
	loopStart   uint64
	loopEnd     uint64

	overrides map[ParameterID]override

	lastBlockCost time.Duration
	blockBudget   time.Duration
}

// NewEngine constructs an engine bound to data, with a default
// smoothing time constant of 10ms and playback rate 1.0 (stopped).
func NewEngine(data *Data) *Engine {
	return &Engine{
		data:        data,
		targets:     make(map[ParameterID]target),
		smooth:      make(map[ParameterID]*smoother),
		SmoothingMS: 10,
		rate:        1.0,
	}
}

// RegisterTarget binds apply as the destination for id's mapped
// automation value. Registering over an existing target replaces it.
func (e *Engine) RegisterTarget(id ParameterID, apply func(engineering float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[id] = target{apply: apply}
}

// UnregisterTarget removes id's target, if any.
func (e *Engine) UnregisterTarget(id ParameterID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.targets, id)
	delete(e.smooth, id)
}

// SetOverride pins id to value, bypassing its lane until ClearOverride
// is called. Used while a user is actively manipulating a control
// during automation playback.
func (e *Engine) SetOverride(id ParameterID, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.overrides == nil {
		e.overrides = make(map[ParameterID]override)
	}
	e.overrides[id] = override{value: value, active: true}
}

// ClearOverride releases id back to its lane's automation.
func (e *Engine) ClearOverride(id ParameterID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.overrides, id)
}

// Play begins playback from the current position at the current rate.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
}

// Stop halts playback; position is left where it was.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

// SetPosition moves the playhead to samples. The value is stored as
// given; when looping is enabled, Process wraps it into the loop range
// on the next block.
func (e *Engine) SetPosition(samples uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = samples
}

// Position returns the current playhead position in samples.
func (e *Engine) Position() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// SetRate sets the playback speed multiplier (1.0 = real-time, negative
// values play in reverse).
func (e *Engine) SetRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
}

// SetLoop enables or disables looping between [start,end) samples.
func (e *Engine) SetLoop(enabled bool, start, end uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loopEnabled = enabled
	e.loopStart = start
	e.loopEnd = end
}

// Process advances the playhead by nFrames (scaled by rate) and
// applies every enabled lane's value to its registered target for this
// block. sampleRate is used to derive the smoothing coefficient. It
// returns the percentage (0-100 for a call within budget) of the
// block's real-time budget this call consumed, for diagnostic CPU
// reporting.
func (e *Engine) Process(nFrames int, sampleRate float64) float64 {
	started := time.Now()

	e.mu.Lock()
	if e.playing {
		delta := int64(float64(nFrames) * e.rate)
		pos := int64(e.position) + delta
		if e.loopEnabled && e.loopEnd > e.loopStart {
			span := int64(e.loopEnd - e.loopStart)
			rel := pos - int64(e.loopStart)
			rel = ((rel % span) + span) % span
			pos = int64(e.loopStart) + rel
		} else if pos < 0 {
			pos = 0
		}
		e.position = uint64(pos)
	}
	position := e.position
	dataEnabled := e.data.Enabled
	alpha := smoothingAlpha(e.SmoothingMS, nFrames, sampleRate)
	e.mu.Unlock()

	if dataEnabled {
		for _, lane := range e.data.Lanes() {
			if !lane.Enabled {
				continue
			}
			id := lane.Parameter

			e.mu.Lock()
			ov, overridden := e.overrides[id]
			tgt, hasTarget := e.targets[id]
			e.mu.Unlock()
			if !hasTarget {
				continue
			}

			var normalized float64
			if overridden && ov.active {
				normalized = ov.value
			} else {
				normalized = lane.ValueAt(position)
			}

			engineering := MapToTarget(id.Kind, normalized)

			e.mu.Lock()
			sm, ok := e.smooth[id]
			if !ok {
				sm = &smoother{}
				e.smooth[id] = sm
			}
			e.mu.Unlock()
			smoothed := sm.step(engineering, alpha)

			tgt.apply(smoothed)
		}
	}

	cost := time.Since(started)
	e.mu.Lock()
	e.lastBlockCost = cost
	e.blockBudget = time.Duration(float64(nFrames) / sampleRate * float64(time.Second))
	budget := e.blockBudget
	e.mu.Unlock()

	if budget <= 0 {
		return 0
	}
	return float64(cost) / float64(budget) * 100
}

// smoothingAlpha computes the one-pole smoothing coefficient
// alpha = 1 - exp(-N / (smoothingMS/1000 * sampleRate)) (§4.E).
func smoothingAlpha(smoothingMS float64, nFrames int, sampleRate float64) float64 {
	if smoothingMS <= 0 || sampleRate <= 0 {
		return 1
	}
	tau := (smoothingMS / 1000) * sampleRate
	if tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-float64(nFrames)/tau)
}
