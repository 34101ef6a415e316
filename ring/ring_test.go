package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRingBasicPushPop(t *testing.T) {
	r := New[int](4)
	require.Equal(t, 4, r.Capacity())

	assert.True(t, r.TryPush(1))
	assert.True(t, r.TryPush(2))
	assert.True(t, r.TryPush(3))
	// one slot is always kept empty to distinguish full from empty
	assert.False(t, r.TryPush(4))

	var v int
	assert.True(t, r.TryPop(&v))
	assert.Equal(t, 1, v)
	assert.True(t, r.TryPush(4))

	assert.True(t, r.TryPop(&v))
	assert.Equal(t, 2, v)
	assert.True(t, r.TryPop(&v))
	assert.Equal(t, 3, v)
	assert.True(t, r.TryPop(&v))
	assert.Equal(t, 4, v)
	assert.False(t, r.TryPop(&v))
}

func TestRingCapacityRoundsToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 8, New[int](5).Capacity())
	assert.Equal(t, 16, New[int](16).Capacity())
	assert.Equal(t, 1, New[int](0).Capacity())
}

func TestRingBulkWrapSplit(t *testing.T) {
	r := New[int](8)
	// advance head/tail near the wrap boundary
	for i := 0; i < 6; i++ {
		require.True(t, r.TryPush(i))
	}
	var v int
	for i := 0; i < 6; i++ {
		require.True(t, r.TryPop(&v))
	}
	require.True(t, r.TryPushN([]int{10, 11, 12, 13, 14}))
	out := make([]int, 5)
	n := r.TryPopN(out)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{10, 11, 12, 13, 14}, out)
}

// TestRingSingleProducerConsumerOrdering is the §8 testable property:
// for any interleaving of push/pop by one producer and one consumer, no
// element is lost, duplicated, or reordered.
func TestRingSingleProducerConsumerOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(t, "capacity")
		ops := rapid.SliceOfN(rapid.IntRange(0, 1), 0, 500).Draw(t, "ops") // 0=push,1=pop

		r := New[int](capacity)
		var produced, consumed []int
		next := 0

		for _, op := range ops {
			switch op {
			case 0:
				if r.TryPush(next) {
					produced = append(produced, next)
					next++
				}
			case 1:
				var v int
				if r.TryPop(&v) {
					consumed = append(consumed, v)
				}
			}
		}
		// drain remainder
		var v int
		for r.TryPop(&v) {
			consumed = append(consumed, v)
		}

		require.LessOrEqual(t, len(consumed), len(produced))
		for i, got := range consumed {
			assert.Equal(t, produced[i], got, "ordering violated at index %d", i)
		}
	})
}

func TestCommandQueueDrainFIFO(t *testing.T) {
	q := NewCommandQueue(8)
	for i := 0; i < 5; i++ {
		assert.True(t, q.Push(Command{Kind: CommandSetParameter, TargetID: uint64(i)}))
	}
	var got []uint64
	q.Drain(func(c Command) { got = append(got, c.TargetID) })
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, got)
}

func TestRealtimeLoggerDropsWhenFull(t *testing.T) {
	l := NewRealtimeLogger(2)
	l.Log(LogInfo, "a")
	l.Log(LogInfo, "b")
	// capacity rounds to 2, one slot reserved, so only one record fits
	// and "b" is dropped
	var got []string
	l.Drain(func(r LogRecord) { got = append(got, r.Message) })
	assert.Equal(t, []string{"a"}, got)
}
