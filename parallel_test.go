package temporal

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreParallelConfig puts the active configuration back after the test.
func restoreParallelConfig(t *testing.T) {
	t.Helper()
	original := GetParallelConfig()
	t.Cleanup(func() { SetParallelConfig(original) })
}

// ============================================================================
// ParallelConfig Tests
// ============================================================================

func TestDefaultParallelConfig(t *testing.T) {
	cfg := DefaultParallelConfig()
	require.NotNil(t, cfg)
	assert.Positive(t, cfg.MinRowsForParallel)
	assert.Positive(t, cfg.MorselSize)
	assert.True(t, cfg.Enabled)
}

func TestSetGetParallelConfig(t *testing.T) {
	restoreParallelConfig(t)

	custom := &ParallelConfig{
		MinRowsForParallel: 1000,
		MorselSize:         512,
		MaxWorkers:         2,
		Enabled:            false,
	}
	SetParallelConfig(custom)
	assert.Same(t, custom, GetParallelConfig())

	// nil leaves the configuration alone
	SetParallelConfig(nil)
	assert.Same(t, custom, GetParallelConfig())
}

func TestParallelConfig_ShouldParallelize(t *testing.T) {
	cfg := &ParallelConfig{MinRowsForParallel: 100, Enabled: true}
	assert.False(t, cfg.shouldParallelize(99))
	assert.True(t, cfg.shouldParallelize(100))

	cfg.Enabled = false
	assert.False(t, cfg.shouldParallelize(1_000_000))
}

// ============================================================================
// Morsel Tests
// ============================================================================

func TestMorselIterator(t *testing.T) {
	it := NewMorselIterator(10, 4)

	var got []Morsel
	for m := it.Next(); m != nil; m = it.Next() {
		got = append(got, *m)
	}
	assert.Equal(t, []Morsel{{0, 4}, {4, 8}, {8, 10}}, got)

	assert.Nil(t, NewMorselIterator(0, 4).Next())
}

func TestParallelFor(t *testing.T) {
	restoreParallelConfig(t)

	for _, enabled := range []bool{false, true} {
		SetParallelConfig(&ParallelConfig{
			MinRowsForParallel: 1,
			MorselSize:         64,
			MaxWorkers:         4,
			Enabled:            enabled,
		})

		n := 10_000
		seen := make([]int32, n)
		var total atomic.Int64
		ParallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
				total.Add(int64(i))
			}
		})
		for i, c := range seen {
			require.Equal(t, int32(1), c, "row %d visited %d times", i, c)
		}
		assert.Equal(t, int64(n*(n-1)/2), total.Load())
	}
}

func TestParallelMap(t *testing.T) {
	restoreParallelConfig(t)
	SetParallelConfig(&ParallelConfig{MinRowsForParallel: 1, MorselSize: 7, MaxWorkers: 3, Enabled: true})

	out := ParallelMap(100, func(i int) int { return i * i })
	require.Len(t, out, 100)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

// ============================================================================
// Partitioned Hash Index Tests
// ============================================================================

func TestNextPowerOf2(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 16: 16, 17: 32}
	for in, want := range tests {
		assert.Equal(t, want, nextPowerOf2(in), "nextPowerOf2(%d)", in)
	}
}

func TestPartitionedHashIndex(t *testing.T) {
	idx := NewPartitionedHashIndex(3)
	assert.Equal(t, 4, idx.numParts)

	hashes := []uint64{7, 3, 7, 12, 3, 7}
	idx.BuildParallel(hashes)

	assert.Equal(t, []int{0, 2, 5}, idx.Lookup(7))
	assert.Equal(t, []int{1, 4}, idx.Lookup(3))
	assert.Equal(t, []int{3}, idx.Lookup(12))
	assert.Nil(t, idx.Lookup(99))

	buckets := 0
	rows := 0
	idx.Buckets(func(_ uint64, r []int) {
		buckets++
		rows += len(r)
	})
	assert.Equal(t, 3, buckets)
	assert.Equal(t, len(hashes), rows)
}

// ============================================================================
// Cost Model Tests
// ============================================================================

func TestShouldParallelizeOp(t *testing.T) {
	restoreParallelConfig(t)
	SetParallelConfig(&ParallelConfig{MaxWorkers: 2, Enabled: true})

	assert.False(t, ShouldParallelizeOp(OpGroupByHash, 100))
	assert.True(t, ShouldParallelizeOp(OpGroupByHash, 1_000_000))
	assert.Greater(t, EstimatedCostPerRow(OpGroupByHash), EstimatedCostPerRow(OpHash))
	assert.Greater(t, EstimatedCostPerRow(OpRowGroupDecode), EstimatedCostPerRow(OpGroupByAgg))

	SetParallelConfig(&ParallelConfig{MaxWorkers: 2, Enabled: false})
	assert.False(t, ShouldParallelizeOp(OpGroupByHash, 1_000_000))
}
