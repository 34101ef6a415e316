package automation

// Point is one automation breakpoint (§3). Value is normalized to
// [0,1]; ControlPoint1/2 are the Bezier control offsets in [-1,1], only
// meaningful when Curve == CurveBezier.
type Point struct {
	TimeSamples  uint64
	Value        float64
	Curve        Curve
	ControlPoint1 float64
	ControlPoint2 float64
	Selected     bool
}
