package automation

import (
	"math"
	"sync"
	"time"

	"github.com/waveforge/dawcore/dawerr"
	"github.com/waveforge/dawcore/ring"
)

// RecordingMode selects how incoming control events are merged into a
// lane during recording (§4.F).
type RecordingMode int

const (
	// ModeLatch records continuously from the moment recording starts
	// until it is stopped, regardless of further control movement.
	ModeLatch RecordingMode = iota
	// ModeTouch records only while a parameter is marked touched.
	ModeTouch
	// ModeWrite overwrites existing points in the recorded range.
	ModeWrite
	// ModeTrim only records a point where an existing point already
	// lies within 4 x RecordingResolution samples of the event time.
	ModeTrim
	// ModeRead disables recording; automation plays back only.
	ModeRead
)

// ControlType identifies the hardware input driving a ControlMapping.
type ControlType int

const (
	ControlMidiCC ControlType = iota
	ControlMidiAftertouch
	ControlMidiPitchBend
	ControlCustom
)

// ControlMapping binds a hardware control source to an automation
// parameter, with a curve (invert/sensitivity/deadzone/range) applied
// before the value is recorded.
type ControlMapping struct {
	Type        ControlType
	MidiChannel uint8
	MidiCC      uint8
	Target      ParameterID

	Invert      bool
	Sensitivity float64
	Deadzone    float64
	MinValue    float64
	MaxValue    float64

	Name    string
	Enabled bool
}

// RecordEvent is one captured control movement, queued from the input
// thread to the recorder's processing loop.
type RecordEvent struct {
	Parameter  ParameterID
	Value      float64
	TimeSamples uint64
	Raw        float64
	TouchStart bool
	TouchEnd   bool
}

// Recorder captures live control input into automation lanes (§4.F).
// Input arrives from MIDI or direct UI calls on an arbitrary goroutine
// and is queued into a lock-free ring; a single background goroutine
// drains the queue on a 1ms poll and applies events to lanes.
type Recorder struct {
	data *Data

	mu       sync.Mutex
	recording bool
	mode      RecordingMode
	armed     map[ParameterID]bool
	mappings  map[ParameterID]ControlMapping
	touching  map[ParameterID]bool
	touchedAt map[ParameterID]uint64
	prevValue map[ParameterID]float64
	lastWrote map[ParameterID]uint64

	PunchInSamples  uint64
	PunchOutSamples uint64
	PreRollSamples  uint64

	MinChangeThreshold  float64
	RecordingResolution uint64

	AutoQuantize     bool
	QuantizeGrid     uint64
	AutoThin         bool
	ThinTolerance    float64

	positionMu sync.Mutex
	position   uint64
	loopStart  uint64
	loopEnd    uint64

	events *ring.Ring[RecordEvent]

	stopCh chan struct{}

	OnParameterRecorded func(id ParameterID, value float64)
	OnStart             func()
	OnStop              func()
}

// NewRecorder constructs a recorder bound to data with the defaults
// from the original reference implementation (§4.F): a 0.001 minimum
// change threshold, 256-sample recording resolution, thinning enabled
// at 0.005 tolerance, auto-quantize disabled.
func NewRecorder(data *Data) *Recorder {
	return &Recorder{
		data:                data,
		mode:                ModeLatch,
		armed:               make(map[ParameterID]bool),
		mappings:            make(map[ParameterID]ControlMapping),
		touching:            make(map[ParameterID]bool),
		touchedAt:           make(map[ParameterID]uint64),
		prevValue:           make(map[ParameterID]float64),
		lastWrote:           make(map[ParameterID]uint64),
		PunchOutSamples:     math.MaxUint64,
		MinChangeThreshold:  0.001,
		RecordingResolution: 256,
		AutoThin:            true,
		ThinTolerance:       0.005,
		QuantizeGrid:        1024,
		loopEnd:             math.MaxUint64,
		events:              ring.New[RecordEvent](1024),
	}
}

// Start begins recording in mode, spawning the background processing
// goroutine.
func (r *Recorder) Start(mode RecordingMode) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return dawerr.New(dawerr.Invariant, "recorder already recording")
	}
	r.recording = true
	r.mode = mode
	r.prevValue = make(map[ParameterID]float64)
	r.mu.Unlock()

	r.stopCh = make(chan struct{})
	go r.run(r.stopCh)

	if r.OnStart != nil {
		r.OnStart()
	}
	return nil
}

// Stop halts recording and drains any remaining queued events.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return dawerr.New(dawerr.Invariant, "recorder is not recording")
	}
	r.recording = false
	r.mu.Unlock()

	close(r.stopCh)
	r.drainOnce()

	if r.OnStop != nil {
		r.OnStop()
	}
	return nil
}

// IsRecording reports whether recording is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// ArmParameter marks id eligible to be recorded.
func (r *Recorder) ArmParameter(id ParameterID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[id] = true
}

// DisarmParameter removes id from the armed set.
func (r *Recorder) DisarmParameter(id ParameterID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.armed, id)
}

// DisarmAll clears every armed parameter.
func (r *Recorder) DisarmAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = make(map[ParameterID]bool)
}

// IsArmed reports whether id is currently armed.
func (r *Recorder) IsArmed(id ParameterID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed[id]
}

// AddMapping registers a hardware control mapping, keyed by its target
// parameter.
func (r *Recorder) AddMapping(m ControlMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.Target] = m
}

// RemoveMapping deletes the mapping targeting id, if any.
func (r *Recorder) RemoveMapping(id ParameterID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, id)
}

// SetTouchState marks id as touched or released, timestamping the
// transition for ModeTouch gating.
func (r *Recorder) SetTouchState(id ParameterID, touching bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touching[id] = touching
	if touching {
		r.touchedAt[id] = r.positionLocked()
	}
}

func (r *Recorder) positionLocked() uint64 {
	r.positionMu.Lock()
	defer r.positionMu.Unlock()
	return r.position
}

// IsTouched reports whether id is currently marked touched.
func (r *Recorder) IsTouched(id ParameterID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touching[id]
}

// SetPosition updates the recorder's view of the current transport
// position, which SetTouchState uses to timestamp touch transitions.
// Punch-in/out gating uses each event's own timestamp, not this value.
func (r *Recorder) SetPosition(samples uint64) {
	r.positionMu.Lock()
	defer r.positionMu.Unlock()
	r.position = samples
}

// SetLoopRange stores the loop window. inRecordingRange does not consult
// it; recording is gated by the punch-in/punch-out window only.
func (r *Recorder) SetLoopRange(start, end uint64) {
	r.positionMu.Lock()
	defer r.positionMu.Unlock()
	r.loopStart = start
	r.loopEnd = end
}

// ProcessMidiCC maps a MIDI CC message through any mapping registered
// for (channel, cc) and queues the resulting parameter change.
func (r *Recorder) ProcessMidiCC(channel, cc, value uint8, timestampSamples uint64) {
	mapping, id, ok := r.findMapping(ControlMidiCC, channel, cc)
	if !ok {
		return
	}
	raw := float64(value) / 127
	r.queueMapped(mapping, id, raw, timestampSamples)
}

// ProcessMidiAftertouch maps a channel aftertouch message.
func (r *Recorder) ProcessMidiAftertouch(channel, pressure uint8, timestampSamples uint64) {
	mapping, id, ok := r.findMapping(ControlMidiAftertouch, channel, 0)
	if !ok {
		return
	}
	raw := float64(pressure) / 127
	r.queueMapped(mapping, id, raw, timestampSamples)
}

// ProcessMidiPitchBend maps a 14-bit pitch bend message, centered at
// 8192.
func (r *Recorder) ProcessMidiPitchBend(channel uint8, value uint16, timestampSamples uint64) {
	mapping, id, ok := r.findMapping(ControlMidiPitchBend, channel, 0)
	if !ok {
		return
	}
	raw := float64(value) / 16383
	r.queueMapped(mapping, id, raw, timestampSamples)
}

func (r *Recorder) findMapping(t ControlType, channel, cc uint8) (ControlMapping, ParameterID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.mappings {
		if !m.Enabled || m.Type != t {
			continue
		}
		if m.MidiChannel != channel {
			continue
		}
		if t == ControlMidiCC && m.MidiCC != cc {
			continue
		}
		return m, id, true
	}
	return ControlMapping{}, ParameterID{}, false
}

func (r *Recorder) queueMapped(m ControlMapping, id ParameterID, raw float64, timestamp uint64) {
	mapped := r.applyMapping(m, raw)
	r.RecordParameterChange(id, mapped, timestamp, false, false)
}

// applyMapping implements the hardware control curve: invert, zero out
// any offset from center inside the deadzone, scale the offset by
// sensitivity, then rescale into [min_value,max_value].
func (r *Recorder) applyMapping(m ControlMapping, input float64) float64 {
	v := input
	if m.Invert {
		v = 1 - v
	}
	centered := v - 0.5
	if math.Abs(centered) < m.Deadzone {
		centered = 0
	}
	v = 0.5 + centered*m.Sensitivity
	v = clamp01(v)
	lo, hi := m.MinValue, m.MaxValue
	if hi == lo {
		return lo
	}
	return clamp01(lo + v*(hi-lo))
}

// RecordParameterChange queues a direct parameter change (mouse/UI
// drag, or already-mapped hardware input) for the processing goroutine.
func (r *Recorder) RecordParameterChange(id ParameterID, value float64, timestampSamples uint64, touchStart, touchEnd bool) {
	r.events.TryPush(RecordEvent{
		Parameter:   id,
		Value:       clamp01(value),
		TimeSamples: timestampSamples,
		TouchStart:  touchStart,
		TouchEnd:    touchEnd,
	})
}

func (r *Recorder) run(stop chan struct{}) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			r.drainOnce()
			return
		case <-ticker.C:
			r.drainOnce()
		}
	}
}

func (r *Recorder) drainOnce() {
	var ev RecordEvent
	for r.events.TryPop(&ev) {
		r.processEvent(ev)
	}
}

func (r *Recorder) processEvent(ev RecordEvent) {
	if ev.TouchStart {
		r.SetTouchState(ev.Parameter, true)
	}
	if ev.TouchEnd {
		r.SetTouchState(ev.Parameter, false)
	}

	r.mu.Lock()
	mode := r.mode
	recording := r.recording
	armed := r.armed[ev.Parameter]
	r.mu.Unlock()

	if !recording || !armed {
		return
	}
	if !r.inRecordingRange(ev.TimeSamples) {
		return
	}
	if !r.shouldRecord(mode, ev) {
		return
	}
	if mode == ModeWrite {
		r.applyWriteClear(ev)
	}

	r.mu.Lock()
	last, hasLast := r.lastWrote[ev.Parameter]
	if hasLast && ev.TimeSamples > last && ev.TimeSamples-last < r.RecordingResolution {
		r.mu.Unlock()
		return
	}
	prev, hasPrev := r.prevValue[ev.Parameter]
	if hasPrev && math.Abs(ev.Value-prev) < r.MinChangeThreshold {
		r.mu.Unlock()
		return
	}
	r.prevValue[ev.Parameter] = ev.Value
	r.lastWrote[ev.Parameter] = ev.TimeSamples
	autoQuantize := r.AutoQuantize
	grid := r.QuantizeGrid
	autoThin := r.AutoThin
	thinTolerance := r.ThinTolerance
	r.mu.Unlock()

	lane := r.data.LaneFor(ev.Parameter, ev.Value)

	ts := ev.TimeSamples
	if autoQuantize && grid > 0 {
		remainder := ts % grid
		if remainder*2 >= grid {
			ts = ts - remainder + grid
		} else {
			ts -= remainder
		}
	}

	_ = lane.AddPoint(Point{TimeSamples: ts, Value: ev.Value, Curve: CurveLinear})

	if autoThin {
		lane.SelectRange(0, ts)
		lane.ThinSelected(thinTolerance)
		lane.ClearSelection()
	}

	if r.OnParameterRecorded != nil {
		r.OnParameterRecorded(ev.Parameter, ev.Value)
	}
}

// shouldRecord applies the recording-mode gate (§4.F): Latch always
// records once armed, Touch only while touching, Write always
// overwrites (with the clear-on-first-write handled separately in
// processEvent), Trim only records where an existing point already
// lies nearby in time, Read never records.
func (r *Recorder) shouldRecord(mode RecordingMode, ev RecordEvent) bool {
	switch mode {
	case ModeRead:
		return false
	case ModeTouch:
		return r.IsTouched(ev.Parameter)
	case ModeTrim:
		lane := r.data.Lane(ev.Parameter)
		if lane == nil {
			return false
		}
		return lane.HasPointNear(ev.TimeSamples, r.RecordingResolution*trimProximityFactor)
	case ModeLatch, ModeWrite:
		return true
	default:
		return true
	}
}

// trimProximityFactor is the multiple of RecordingResolution within
// which an existing point must lie for Trim mode to record (§4.F step
// 4: "only insert if existing points are within proximity 4 x
// recording_resolution").
const trimProximityFactor = 4

// defaultWriteClearWindow is the clear-range length, in samples, used
// by Write mode when no punch-out time is set: one second at 44.1kHz.
const defaultWriteClearWindow = 44100

// applyWriteClear implements Write mode's "on first touch for a
// parameter, clear existing points in an upcoming window before
// inserting" (§4.F step 4). "First" means either this event starts a
// touch gesture, or no value has been recorded yet for the parameter
// since recording last started.
func (r *Recorder) applyWriteClear(ev RecordEvent) {
	r.mu.Lock()
	_, hasPrev := r.prevValue[ev.Parameter]
	punchOut := r.PunchOutSamples
	r.mu.Unlock()

	if !ev.TouchStart && hasPrev {
		return
	}

	lane := r.data.Lane(ev.Parameter)
	if lane == nil {
		return
	}
	clearEnd := punchOut
	if clearEnd == math.MaxUint64 {
		clearEnd = ev.TimeSamples + defaultWriteClearWindow
	}
	lane.ClearRange(ev.TimeSamples, clearEnd)
}

// inRecordingRange reports whether timeSamples falls within the
// configured punch-in/punch-out window.
func (r *Recorder) inRecordingRange(timeSamples uint64) bool {
	return timeSamples >= r.PunchInSamples && timeSamples <= r.PunchOutSamples
}
