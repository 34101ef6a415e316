package mixer

import (
	"math"
	"sync/atomic"
)

// atomicFloat64 stores a float64 behind an atomic.Uint64 bit pattern so
// the audio processing path can read control-plane values (gain, pan,
// trim) without locking, mirroring the discipline used throughout this
// module's real-time paths.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}
