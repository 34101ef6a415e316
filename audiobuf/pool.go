// Package audiobuf implements the fixed-count, pre-allocated audio
// buffer pool (§4.B): allocation-free at steady state, CAS-scanned
// acquisition, and an RAII-style lease that releases its slot when the
// caller is done with it.
package audiobuf

import (
	"sync/atomic"

	"github.com/waveforge/dawcore"
)

// Pool is a fixed-size set of pre-allocated dawcore.Buffer values.
type Pool struct {
	channels   int
	maxFrames  int
	slots      []*dawcore.Buffer
	inUse      []atomic.Bool
}

// NewPool pre-allocates count buffers, each sized maxFrames x channels.
func NewPool(count, channels, maxFrames int) *Pool {
	p := &Pool{
		channels:  channels,
		maxFrames: maxFrames,
		slots:     make([]*dawcore.Buffer, count),
		inUse:     make([]atomic.Bool, count),
	}
	for i := range p.slots {
		p.slots[i] = dawcore.NewBuffer(channels, maxFrames)
	}
	return p
}

// Lease is a scoped handle to a pooled buffer. Call Release exactly
// once when done; Release is idempotent if called more than once.
type Lease struct {
	pool *Pool
	idx  int
	buf  *dawcore.Buffer
}

// Buffer returns the leased buffer, zero-filled at acquisition time.
func (l *Lease) Buffer() *dawcore.Buffer { return l.buf }

// Release returns the slot to the pool for reuse.
func (l *Lease) Release() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.inUse[l.idx].Store(false)
	l.pool = nil
}

// Acquire scans for a free slot and returns a leased buffer, zero-filled
// and sized to frames (frames must be <= the pool's maxFrames). It
// returns nil if the pool is exhausted - callers must size the pool
// with enough headroom that this never happens on the audio thread.
func (p *Pool) Acquire(frames int) *Lease {
	if frames > p.maxFrames {
		return nil
	}
	for i := range p.slots {
		if p.inUse[i].CompareAndSwap(false, true) {
			buf := p.slots[i]
			buf.SetFrames(frames)
			buf.Clear()
			return &Lease{pool: p, idx: i, buf: buf}
		}
	}
	return nil
}

// Len returns the number of slots in the pool.
func (p *Pool) Len() int { return len(p.slots) }

// InUse returns a snapshot count of currently leased slots, for
// diagnostics.
func (p *Pool) InUse() int {
	n := 0
	for i := range p.inUse {
		if p.inUse[i].Load() {
			n++
		}
	}
	return n
}
