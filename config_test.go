package temporal

import (
	"runtime"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
)

func TestThreadConfig(t *testing.T) {
	restoreParallelConfig(t)

	SetMaxThreads(0)
	assert.True(t, IsThreadsAutoDetected())
	assert.Equal(t, runtime.GOMAXPROCS(0), GetMaxThreads())

	SetMaxThreads(3)
	assert.False(t, IsThreadsAutoDetected())
	assert.Equal(t, ThreadConfig{MaxThreads: 3, AutoDetected: false}, GetThreadConfig())
}

func TestSetAllocator(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	SetAllocator(mem)
	defer SetAllocator(nil)

	s := durations("d", Milliseconds, 1, 2, 3)
	assert.Positive(t, mem.CurrentAlloc())
	s.Release()
	mem.AssertSize(t, 0)

	SetAllocator(nil)
	assert.Equal(t, memory.DefaultAllocator, allocator())
}

func TestLoggerDefaultsToDiscard(t *testing.T) {
	SetLogger(nil)
	assert.NotNil(t, log())
	assert.False(t, log().Enabled(t.Context(), -8))
}
