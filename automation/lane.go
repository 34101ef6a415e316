package automation

import (
	"sort"
	"sync/atomic"

	"github.com/waveforge/dawcore/dawerr"
)

// Lane is a time-ordered sparse point set controlling one parameter
// (§3). The point list is held behind an atomic pointer and replaced
// wholesale (copy-on-write) by every mutating method, so ValueAt can be
// called from the audio thread's automation engine without locking
// against a concurrent recorder or editor goroutine (§9 "automation
// lane mutation during playback").
type Lane struct {
	Parameter ParameterID
	Default   float64

	// visual attributes (§3), carried for host/GUI consumption - not
	// interpreted by the engine.
	Color   string
	Visible bool
	// Enabled is read by Engine.Process, which skips disabled lanes.
	// Armed is a flag carried for the host.
	Enabled bool
	Armed   bool

	points atomic.Pointer[[]Point]
}

// NewLane constructs an empty, enabled, visible lane for id with the
// given default value.
func NewLane(id ParameterID, defaultValue float64) *Lane {
	l := &Lane{Parameter: id, Default: defaultValue, Visible: true, Enabled: true}
	empty := []Point{}
	l.points.Store(&empty)
	return l
}

// Points returns a snapshot of the lane's points in time order. The
// returned slice is the lane's published list itself, shared with every
// other reader; it is safe to read without further synchronization, but
// must not be mutated in place - use the Lane's editing methods instead.
func (l *Lane) Points() []Point {
	return *l.points.Load()
}

// Len returns the number of points in the lane.
func (l *Lane) Len() int { return len(l.Points()) }

func search(pts []Point, t uint64) int {
	return sort.Search(len(pts), func(i int) bool { return pts[i].TimeSamples >= t })
}

// publish swaps in a freshly built slice as the lane's current point
// list. Never mutates a slice already published.
func (l *Lane) publish(pts []Point) {
	l.points.Store(&pts)
}

// AddPoint validates and inserts a point, maintaining time order. If a
// point already exists at p.TimeSamples, its value and curve are
// overwritten in place (§4.D).
func (l *Lane) AddPoint(p Point) error {
	if p.Value < 0 || p.Value > 1 {
		return dawerr.New(dawerr.InvalidParameter, "automation point value must be in [0,1]").With("value", p.Value)
	}
	if p.Curve == CurveBezier {
		if p.ControlPoint1 < -1 || p.ControlPoint1 > 1 || p.ControlPoint2 < -1 || p.ControlPoint2 > 1 {
			return dawerr.New(dawerr.InvalidParameter, "bezier control points must be in [-1,1]")
		}
	}

	old := l.Points()
	idx := search(old, p.TimeSamples)
	next := make([]Point, len(old), len(old)+1)
	copy(next, old)

	if idx < len(next) && next[idx].TimeSamples == p.TimeSamples {
		next[idx] = p
		l.publish(next)
		return nil
	}
	next = append(next, Point{})
	copy(next[idx+1:], next[idx:len(next)-1])
	next[idx] = p
	l.publish(next)
	return nil
}

// ValueAt performs the §4.D value-at-time query: binary search for the
// surrounding points, then interpolate using p1's curve. Safe to call
// concurrently with any editing method - it always operates on a
// single atomically-loaded snapshot.
func (l *Lane) ValueAt(query uint64) float64 {
	pts := l.Points()
	if len(pts) == 0 {
		return l.Default
	}
	idx := search(pts, query+1) // first point with TimeSamples > query
	p1Idx := idx - 1

	if p1Idx < 0 {
		return l.Default
	}
	p1 := pts[p1Idx]
	if idx >= len(pts) {
		return p1.Value
	}
	p2 := pts[idx]

	span := float64(p2.TimeSamples - p1.TimeSamples)
	if span <= 0 {
		return p1.Value
	}
	u := float64(query-p1.TimeSamples) / span
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	t := shape(p1.Curve, u, p1.ControlPoint1, p1.ControlPoint2)
	return p1.Value + (p2.Value-p1.Value)*t
}

// RemovePointAtIndex removes the point at index i.
func (l *Lane) RemovePointAtIndex(i int) error {
	old := l.Points()
	if i < 0 || i >= len(old) {
		return dawerr.New(dawerr.NotFound, "automation point index out of range").With("index", i)
	}
	next := make([]Point, 0, len(old)-1)
	next = append(next, old[:i]...)
	next = append(next, old[i+1:]...)
	l.publish(next)
	return nil
}

// RemovePointNear removes the point nearest to t, within tolerance
// samples. Returns NotFound if no point is within tolerance.
func (l *Lane) RemovePointNear(t uint64, tolerance uint64) error {
	pts := l.Points()
	i, ok := indexNear(pts, t, tolerance)
	if !ok {
		return dawerr.New(dawerr.NotFound, "no automation point within tolerance").With("time", t)
	}
	return l.RemovePointAtIndex(i)
}

// HasPointNear reports whether a point exists within tolerance samples
// of t (used by Trim-mode recording to gate on proximity to existing
// automation rather than on value delta).
func (l *Lane) HasPointNear(t uint64, tolerance uint64) bool {
	_, ok := indexNear(l.Points(), t, tolerance)
	return ok
}

func indexNear(pts []Point, t, tolerance uint64) (int, bool) {
	best := -1
	var bestDist uint64
	for i, p := range pts {
		var dist uint64
		if p.TimeSamples > t {
			dist = p.TimeSamples - t
		} else {
			dist = t - p.TimeSamples
		}
		if dist <= tolerance && (best == -1 || dist < bestDist) {
			best, bestDist = i, dist
		}
	}
	return best, best != -1
}

// SelectRange marks points with TimeSamples in [start,end] as Selected,
// and deselects every other point.
func (l *Lane) SelectRange(start, end uint64) {
	old := l.Points()
	next := make([]Point, len(old))
	copy(next, old)
	for i := range next {
		next[i].Selected = next[i].TimeSamples >= start && next[i].TimeSamples <= end
	}
	l.publish(next)
}

// ClearSelection deselects every point.
func (l *Lane) ClearSelection() {
	old := l.Points()
	next := make([]Point, len(old))
	copy(next, old)
	for i := range next {
		next[i].Selected = false
	}
	l.publish(next)
}

func selectedIndices(pts []Point) []int {
	var idxs []int
	for i, p := range pts {
		if p.Selected {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// MoveSelected shifts every selected point's time by deltaSamples
// (clamped so no point's time goes negative) and value by deltaValue
// (clamped to [0,1]), then re-sorts to preserve ordering.
func (l *Lane) MoveSelected(deltaSamples int64, deltaValue float64) {
	old := l.Points()
	next := make([]Point, len(old))
	copy(next, old)
	for _, i := range selectedIndices(next) {
		p := &next[i]
		nt := int64(p.TimeSamples) + deltaSamples
		if nt < 0 {
			nt = 0
		}
		p.TimeSamples = uint64(nt)
		p.Value = clamp01(p.Value + deltaValue)
	}
	l.publish(resort(next))
}

// ScaleSelectedAroundPivot scales selected points' values around
// pivotValue by factor, clamped to [0,1].
func (l *Lane) ScaleSelectedAroundPivot(pivotValue, factor float64) {
	old := l.Points()
	next := make([]Point, len(old))
	copy(next, old)
	for _, i := range selectedIndices(next) {
		p := &next[i]
		p.Value = clamp01(pivotValue + (p.Value-pivotValue)*factor)
	}
	l.publish(next)
}

// SetSelectedCurve sets the curve type (and Bezier control points, if
// applicable) on every selected point.
func (l *Lane) SetSelectedCurve(curve Curve, cp1, cp2 float64) {
	old := l.Points()
	next := make([]Point, len(old))
	copy(next, old)
	for _, i := range selectedIndices(next) {
		next[i].Curve = curve
		next[i].ControlPoint1 = cp1
		next[i].ControlPoint2 = cp2
	}
	l.publish(next)
}

// SmoothSelected applies a 3-point weighted average to each selected
// point (excluding the first/last point in the lane, which have no two
// neighbors), blended by strength in [0,1] (0 = no change, 1 = full
// average).
func (l *Lane) SmoothSelected(strength float64) {
	orig := l.Points()
	next := make([]Point, len(orig))
	copy(next, orig)
	for _, i := range selectedIndices(orig) {
		if i == 0 || i == len(orig)-1 {
			continue
		}
		avg := (orig[i-1].Value + orig[i].Value + orig[i+1].Value) / 3
		next[i].Value = clamp01(orig[i].Value + (avg-orig[i].Value)*strength)
	}
	l.publish(next)
}

// QuantizeSelected snaps each selected point's time to the nearest
// multiple of gridSamples, rounding half up.
func (l *Lane) QuantizeSelected(gridSamples uint64) {
	if gridSamples == 0 {
		return
	}
	old := l.Points()
	next := make([]Point, len(old))
	copy(next, old)
	for _, i := range selectedIndices(next) {
		p := &next[i]
		remainder := p.TimeSamples % gridSamples
		base := p.TimeSamples - remainder
		if remainder*2 >= gridSamples {
			base += gridSamples
		}
		p.TimeSamples = base
	}
	l.publish(resort(next))
}

// ThinSelected removes each selected point whose value differs from the
// value the remaining neighbors would interpolate to by no more than
// tolerance (§4.D "thin"). Never removes the first or last point.
func (l *Lane) ThinSelected(tolerance float64) {
	old := l.Points()
	selectedSet := make(map[int]bool)
	for _, i := range selectedIndices(old) {
		selectedSet[i] = true
	}

	var kept []Point
	for i, p := range old {
		if !selectedSet[i] || i == 0 || i == len(old)-1 {
			kept = append(kept, p)
			continue
		}
		prev := kept[len(kept)-1]
		var next Point
		if i+1 < len(old) {
			next = old[i+1]
		}
		span := float64(next.TimeSamples - prev.TimeSamples)
		var interp float64
		if span <= 0 {
			interp = prev.Value
		} else {
			u := float64(p.TimeSamples-prev.TimeSamples) / span
			t := shape(prev.Curve, u, prev.ControlPoint1, prev.ControlPoint2)
			interp = prev.Value + (next.Value-prev.Value)*t
		}
		if abs(p.Value-interp) > tolerance {
			kept = append(kept, p)
		}
	}
	l.publish(kept)
}

// ClearRange removes every point with TimeSamples in [start,end].
func (l *Lane) ClearRange(start, end uint64) {
	old := l.Points()
	var kept []Point
	for _, p := range old {
		if p.TimeSamples < start || p.TimeSamples > end {
			kept = append(kept, p)
		}
	}
	l.publish(kept)
}

func resort(pts []Point) []Point {
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].TimeSamples < pts[j].TimeSamples
	})
	if len(pts) < 2 {
		return pts
	}
	deduped := pts[:1]
	for _, p := range pts[1:] {
		if p.TimeSamples == deduped[len(deduped)-1].TimeSamples {
			deduped[len(deduped)-1] = p
		} else {
			deduped = append(deduped, p)
		}
	}
	return deduped
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
