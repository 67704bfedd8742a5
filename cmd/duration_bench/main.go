package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/NerdMeNot/galleon/temporal"
)

func main() {
	n := flag.Int("n", 1_000_000, "rows per column")
	iterations := flag.Int("iterations", 5, "runs per operation")
	unit := flag.String("unit", "ms", "time unit: ms, us or ns")
	verbose := flag.Bool("v", false, "log debug records")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	temporal.SetLogger(logger)

	tu, err := temporal.ParseTimeUnit(*unit)
	if err != nil {
		logger.Error("invalid unit", "err", err)
		os.Exit(2)
	}

	fmt.Println("=== Duration Column Benchmark ===")
	fmt.Printf("Size: %d elements, Iterations: %d, Unit: %s, Threads: %d\n\n",
		*n, *iterations, tu, temporal.GetMaxThreads())

	a, b, keys := makeColumns(*n, tu)
	defer a.Release()
	defer b.Release()
	defer keys.Release()

	three := temporal.NewSeriesInt64("factor", []int64{3})
	defer three.Release()
	half := temporal.NewSeriesFloat64("factor", []float64{0.5})
	defer half.Release()

	ops := []struct {
		name string
		fn   func() error
	}{
		{"add", func() error { return discard(a.Add(b)) }},
		{"subtract", func() error { return discard(a.Subtract(b)) }},
		{"multiply i64", func() error { return discard(a.Multiply(three)) }},
		{"multiply f64", func() error { return discard(a.Multiply(half)) }},
		{"divide", func() error { return discard(a.Divide(b)) }},
		{"remainder", func() error { return discard(a.Remainder(b)) }},
		{"sum", func() error { _, err := a.SumReduce(); return err }},
		{"mean", func() error { _, err := a.MeanReduce(); return err }},
		{"var", func() error { _, err := a.VarReduce(1); return err }},
		{"median", func() error { _, err := a.MedianReduce(); return err }},
		{"sort", func() error { return discard(a.Sort(false)) }},
		{"group tuples", func() error { keys.GroupTuples(true, false); return nil }},
	}

	for _, op := range ops {
		d, err := benchmark(*iterations, op.fn)
		if err != nil {
			logger.Error("operation failed", "op", op.name, "err", err)
			os.Exit(1)
		}
		fmt.Printf("%-14s %v\n", op.name, d)
	}

	groups := keys.GroupTuples(true, true)
	aggDur, err := benchmark(*iterations, func() error { return discard(a.AggSum(groups)) })
	if err != nil {
		logger.Error("operation failed", "op", "agg_sum", "err", err)
		os.Exit(1)
	}
	fmt.Printf("%-14s %v (%d groups)\n", "agg_sum", aggDur, groups.Len())
}

func makeColumns(n int, tu temporal.TimeUnit) (*temporal.Series, *temporal.Series, *temporal.Series) {
	rng := rand.New(rand.NewPCG(1, 2))
	av := make([]int64, n)
	bv := make([]int64, n)
	kv := make([]int64, n)
	valid := make([]bool, n)
	for i := range av {
		av[i] = rng.Int64N(1_000_000_000)
		bv[i] = rng.Int64N(1_000_000) + 1
		kv[i] = rng.Int64N(1000)
		valid[i] = i%17 != 0
	}
	return temporal.NewSeriesDuration("a", av, valid, tu),
		temporal.NewSeriesDuration("b", bv, nil, tu),
		temporal.NewSeriesInt64("key", kv)
}

func discard(s *temporal.Series, err error) error {
	if s != nil {
		s.Release()
	}
	return err
}

func benchmark(iterations int, fn func() error) (time.Duration, error) {
	var total time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if err := fn(); err != nil {
			return 0, err
		}
		total += time.Since(start)
	}
	return total / time.Duration(iterations), nil
}
