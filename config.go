package temporal

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ============================================================================
// Thread Configuration
// ============================================================================

// SetMaxThreads sets the maximum number of worker goroutines used by
// parallel group-by work. Pass 0 to use GOMAXPROCS (default).
func SetMaxThreads(maxThreads int) {
	cfg := *GetParallelConfig()
	cfg.MaxWorkers = maxThreads
	SetParallelConfig(&cfg)
}

// GetMaxThreads returns the current effective maximum thread count.
func GetMaxThreads() int {
	return GetParallelConfig().numWorkers()
}

// IsThreadsAutoDetected returns true if thread count was auto-detected.
func IsThreadsAutoDetected() bool {
	return GetParallelConfig().MaxWorkers <= 0
}

// ThreadConfig holds thread configuration information
type ThreadConfig struct {
	MaxThreads   int
	AutoDetected bool
}

// GetThreadConfig returns the current thread configuration.
func GetThreadConfig() ThreadConfig {
	return ThreadConfig{
		MaxThreads:   GetMaxThreads(),
		AutoDetected: IsThreadsAutoDetected(),
	}
}

// ============================================================================
// Memory
// ============================================================================

var defaultAllocator atomic.Pointer[memory.Allocator]

// SetAllocator sets the arrow allocator used for every buffer the package
// allocates. Passing nil restores memory.DefaultAllocator.
func SetAllocator(mem memory.Allocator) {
	if mem == nil {
		defaultAllocator.Store(nil)
		return
	}
	defaultAllocator.Store(&mem)
}

func allocator() memory.Allocator {
	if p := defaultAllocator.Load(); p != nil {
		return *p
	}
	return memory.DefaultAllocator
}

// kernelCtx returns the context handed to arrow compute kernels.
func kernelCtx() context.Context {
	return exec.WithAllocator(context.Background(), allocator())
}

// ============================================================================
// Logging
// ============================================================================

var logger atomic.Pointer[slog.Logger]

// SetLogger installs the structured logger used for debug records. Passing
// nil silences the package again.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func log() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return discardLogger
}

var discardLogger = slog.New(slog.DiscardHandler)
