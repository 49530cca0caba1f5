package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelize_CoversEveryIndexOnce(t *testing.T) {
	const n = 1037
	seen := make([]int32, n)
	Parallelize(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	})
	for i, c := range seen {
		assert.Equal(t, int32(1), c, "index %d", i)
	}
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestForEach(t *testing.T) {
	out := make([]int, 50)
	ForEach(len(out), 4, func(i int) {
		out[i] = i * i
	})
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}

	var count int32
	ForEach(0, 4, func(int) { atomic.AddInt32(&count, 1) })
	assert.Zero(t, count)
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(8, 3))
	assert.Equal(t, 2, Workers(2, 10))
	assert.Equal(t, 1, Workers(4, 0))
	assert.GreaterOrEqual(t, Workers(0, 1000), 1)
}
