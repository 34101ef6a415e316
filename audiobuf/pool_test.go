package audiobuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireReleaseReuse(t *testing.T) {
	p := NewPool(2, 2, 128)
	require.Equal(t, 2, p.Len())

	l1 := p.Acquire(64)
	require.NotNil(t, l1)
	assert.Equal(t, 64, l1.Buffer().Frames())
	assert.Equal(t, 1, p.InUse())

	l2 := p.Acquire(128)
	require.NotNil(t, l2)
	assert.Equal(t, 2, p.InUse())

	// exhausted
	assert.Nil(t, p.Acquire(1))

	l1.Release()
	assert.Equal(t, 1, p.InUse())

	l3 := p.Acquire(10)
	require.NotNil(t, l3)
	assert.Equal(t, 2, p.InUse())

	// double release is a no-op
	l1.Release()
	assert.Equal(t, 2, p.InUse())
}

func TestPoolAcquireZeroFills(t *testing.T) {
	p := NewPool(1, 1, 8)
	l := p.Acquire(8)
	buf := l.Buffer()
	for f := 0; f < 8; f++ {
		buf.Set(0, f, 42)
	}
	l.Release()

	l2 := p.Acquire(8)
	buf2 := l2.Buffer()
	for f := 0; f < 8; f++ {
		assert.Equal(t, float32(0), buf2.At(0, f))
	}
}

func TestPoolRejectsOversizeRequest(t *testing.T) {
	p := NewPool(1, 2, 16)
	assert.Nil(t, p.Acquire(17))
}
