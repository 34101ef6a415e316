package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testID() ParameterID {
	return ParameterID{Kind: KindTrackVolume, TrackID: 1}
}

func TestLaneValueAtBeforeFirstPointReturnsDefault(t *testing.T) {
	l := NewLane(testID(), 0.75)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 1000, Value: 0.5, Curve: CurveLinear}))
	assert.Equal(t, 0.75, l.ValueAt(500))
}

func TestLaneValueAtAfterLastPointHoldsLastValue(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 1000, Value: 0.5, Curve: CurveLinear}))
	assert.Equal(t, 0.5, l.ValueAt(5000))
}

func TestLaneValueAtLinearInterpolation(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 0, Value: 0.0, Curve: CurveLinear}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 100, Value: 1.0, Curve: CurveLinear}))
	assert.InDelta(t, 0.5, l.ValueAt(50), 1e-9)
	assert.InDelta(t, 0.25, l.ValueAt(25), 1e-9)
}

func TestLaneAddPointOverwritesDuplicateTimestamp(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 100, Value: 0.2, Curve: CurveLinear}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 100, Value: 0.8, Curve: CurveLinear}))
	require.Equal(t, 1, l.Len())
	assert.Equal(t, 0.8, l.Points()[0].Value)
}

func TestLaneAddPointRejectsOutOfRangeValue(t *testing.T) {
	l := NewLane(testID(), 0.0)
	err := l.AddPoint(Point{TimeSamples: 0, Value: 1.5})
	assert.Error(t, err)
}

func TestLaneAddPointMaintainsTimeOrder(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 300, Value: 0.3}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 100, Value: 0.1}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 200, Value: 0.2}))
	times := []uint64{l.Points()[0].TimeSamples, l.Points()[1].TimeSamples, l.Points()[2].TimeSamples}
	assert.Equal(t, []uint64{100, 200, 300}, times)
}

func TestLaneRemovePointNearWithinTolerance(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 1000, Value: 0.5}))
	require.NoError(t, l.RemovePointNear(1010, 20))
	assert.Equal(t, 0, l.Len())
}

func TestLaneRemovePointNearOutsideToleranceErrors(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 1000, Value: 0.5}))
	err := l.RemovePointNear(1100, 20)
	assert.Error(t, err)
}

func TestLaneQuantizeSelectedSnapsToGrid(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 0, Value: 0.0}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 523, Value: 0.5}))
	l.SelectRange(0, 10000)
	l.QuantizeSelected(500)
	assert.Equal(t, uint64(500), l.Points()[1].TimeSamples)
}

func TestLaneClearRangeRemovesPointsInWindow(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 0, Value: 0.1}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 500, Value: 0.5}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 1000, Value: 0.9}))
	l.ClearRange(400, 600)
	assert.Equal(t, 2, l.Len())
}

func TestLaneMoveSelectedPreservesOrdering(t *testing.T) {
	l := NewLane(testID(), 0.0)
	require.NoError(t, l.AddPoint(Point{TimeSamples: 0, Value: 0.1}))
	require.NoError(t, l.AddPoint(Point{TimeSamples: 500, Value: 0.5}))
	l.SelectRange(500, 500)
	l.MoveSelected(-1000, 0)
	// point moved to time 0 collides with the existing point at 0;
	// resort dedups keeping the moved (later) point.
	assert.Equal(t, 1, l.Len())
}

// TestLaneValueAtIsMonotonicBetweenMonotonicPoints checks the §8 shape
// invariant: for a linear lane whose values are non-decreasing in time,
// ValueAt is never less than the value at an earlier query time.
func TestLaneValueAtIsMonotonicBetweenMonotonicPoints(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := NewLane(testID(), 0.0)
		n := rapid.IntRange(2, 8).Draw(rt, "n")
		t0 := uint64(0)
		v0 := 0.0
		for i := 0; i < n; i++ {
			t0 += rapid.Uint64Range(1, 1000).Draw(rt, "dt")
			v0 += rapid.Float64Range(0, (1.0-v0)/float64(n-i)).Draw(rt, "dv")
			require.NoError(rt, l.AddPoint(Point{TimeSamples: t0, Value: v0, Curve: CurveLinear}))
		}
		pts := l.Points()
		qa := rapid.Uint64Range(0, t0+100).Draw(rt, "qa")
		qb := rapid.Uint64Range(0, t0+100).Draw(rt, "qb")
		if qa > qb {
			qa, qb = qb, qa
		}
		_ = pts
		assert.LessOrEqual(rt, l.ValueAt(qa), l.ValueAt(qb)+1e-9)
	})
}
